package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"taskqueue/internal/engine"
	"taskqueue/internal/export"
	"taskqueue/internal/fileutil"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		format   string
		output   string
		statuses []string
		assignee string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks as JSON, CSV or YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			chosen := strings.TrimSpace(format)
			if chosen == "" && output != "" {
				chosen = filepath.Ext(output)
			}
			if chosen == "" {
				chosen = cfg.Export.DefaultFormat
			}
			parsedFormat, err := export.ParseFormat(chosen)
			if err != nil {
				return err
			}
			parsedStatuses, err := parseStatuses(statuses)
			if err != nil {
				return err
			}

			return ctx.withEngine(func(eng *engine.Engine) error {
				tasks, err := eng.GetTasks(cmd.Context(), engine.TaskQuery{
					Statuses:   parsedStatuses,
					AssignedTo: assignee,
				})
				if err != nil {
					return err
				}

				if output == "" || output == "-" {
					return export.Write(cmd.OutOrStdout(), parsedFormat, tasks)
				}
				err = fileutil.WriteFileAtomic(output, 0o644, func(w io.Writer) error {
					return export.Write(w, parsedFormat, tasks)
				})
				if err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d tasks to %s\n", len(tasks), output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json, csv or yaml (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().StringVarP(&assignee, "assign", "a", "", "Filter by assignee")
	return cmd
}
