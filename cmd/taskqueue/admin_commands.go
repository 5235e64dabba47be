package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskqueue/internal/notifications"
	"taskqueue/internal/queue"
)

func newPurgeCommand(ctx *commandContext) *cobra.Command {
	var (
		statuses  []string
		olderThan time.Duration
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete finished tasks",
		Long:  "Delete completed, failed or cancelled tasks. Pending and in-progress tasks are never removed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseStatuses(statuses)
			if err != nil {
				return err
			}
			if olderThan < 0 {
				return &queue.InputError{Field: "older-than", Value: olderThan.String(), Reason: "must not be negative"}
			}
			var cutoff time.Time
			if olderThan > 0 {
				cutoff = time.Now().Add(-olderThan)
			}
			return ctx.withStore(func(store *queue.Store) error {
				removed, err := store.Purge(cmd.Context(), parsed, cutoff)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]int64{"removed": removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d tasks\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Terminal statuses to purge (default: all terminal)")
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only purge tasks finished longer ago than this")
	return cmd
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check task database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				resp, err := store.CheckHealth(cmd.Context())
				if err != nil && resp.Error == "" {
					resp.Error = err.Error()
				}
				if ctx.JSONMode() {
					if err := writeJSON(cmd, resp); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "Database path: %s\n", resp.DBPath)
					fmt.Fprintf(out, "Database exists: %s\n", yesNo(resp.DatabaseExists))
					fmt.Fprintf(out, "Readable: %s\n", yesNo(resp.DatabaseReadable))
					fmt.Fprintf(out, "Schema version: %d\n", resp.SchemaVersion)
					fmt.Fprintf(out, "tasks table present: %s\n", yesNo(resp.TableExists))
					if len(resp.MissingColumns) > 0 {
						missing := append([]string(nil), resp.MissingColumns...)
						sort.Strings(missing)
						fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
					} else {
						fmt.Fprintln(out, "Missing columns: none")
					}
					fmt.Fprintf(out, "Integrity check: %s\n", yesNo(resp.IntegrityCheck))
					fmt.Fprintf(out, "Total tasks: %d\n", resp.TotalTasks)
					if resp.Error != "" {
						fmt.Fprintf(out, "Error: %s\n", resp.Error)
					}
				}
				if !resp.Healthy() {
					return errors.New("task database is unhealthy")
				}
				return nil
			})
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No ntfy topic configured; nothing sent")
				return nil
			}
			if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
