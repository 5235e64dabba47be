package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskqueue/internal/engine"
	"taskqueue/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var (
		description string
		assignee    string
		priority    string
		schedule    string
		meta        []string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Enqueue a new task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedPriority, err := parseOptionalPriority(priority)
			if err != nil {
				return err
			}
			scheduleAt, err := parseSchedule(schedule, time.Now())
			if err != nil {
				return err
			}
			metadata, err := parseMetadataFlags(meta)
			if err != nil {
				return err
			}

			return ctx.withEngine(func(eng *engine.Engine) error {
				id, err := eng.AddTask(cmd.Context(), engine.NewTask{
					Title:       strings.Join(args, " "),
					Description: description,
					AssignedTo:  assignee,
					Priority:    parsedPriority,
					ScheduleAt:  scheduleAt,
					Metadata:    metadata,
				})
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]string{"id": id})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task created: %s\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Longer task description")
	cmd.Flags().StringVarP(&assignee, "assign", "a", "", "Assignee identifier")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority: low, normal, high, critical (or 1-4)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Not ready before this RFC3339 time or duration from now")
	cmd.Flags().StringArrayVarP(&meta, "meta", "m", nil, "Metadata key=value (repeatable; JSON values accepted)")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		statuses    []string
		assignee    string
		priority    string
		minPriority string
		meta        []string
		byPriority  bool
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedStatuses, err := parseStatuses(statuses)
			if err != nil {
				return err
			}
			exact, err := parseOptionalPriority(priority)
			if err != nil {
				return err
			}
			minimum, err := parseOptionalPriority(minPriority)
			if err != nil {
				return err
			}
			metadata, err := parseMetadataFlags(meta)
			if err != nil {
				return err
			}
			if limit < 0 {
				return &queue.InputError{Field: "limit", Value: fmt.Sprint(limit), Reason: "must not be negative"}
			}

			return ctx.withEngine(func(eng *engine.Engine) error {
				tasks, err := eng.GetTasks(cmd.Context(), engine.TaskQuery{
					Statuses:    parsedStatuses,
					AssignedTo:  assignee,
					Priority:    exact,
					MinPriority: minimum,
					Metadata:    metadata,
					ByPriority:  byPriority,
					Limit:       limit,
				})
				if err != nil {
					return err
				}
				return printTasks(cmd, ctx, tasks, "No tasks found")
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().StringVarP(&assignee, "assign", "a", "", "Filter by assignee")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Filter by exact priority")
	cmd.Flags().StringVar(&minPriority, "min-priority", "", "Filter by minimum priority")
	cmd.Flags().StringArrayVarP(&meta, "meta", "m", nil, "Filter by metadata key=value (repeatable)")
	cmd.Flags().BoolVar(&byPriority, "by-priority", false, "Sort by priority instead of creation time")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of tasks to show")
	return cmd
}

func newReadyCommand(ctx *commandContext) *cobra.Command {
	var (
		assignee string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "ready",
		Short: "List pending tasks that are ready to run, highest priority first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return &queue.InputError{Field: "limit", Value: fmt.Sprint(limit), Reason: "must not be negative"}
			}
			return ctx.withEngine(func(eng *engine.Engine) error {
				tasks, err := eng.ReadyTasks(cmd.Context(), assignee, limit)
				if err != nil {
					return err
				}
				return printTasks(cmd, ctx, tasks, "No tasks ready")
			})
		},
	}

	cmd.Flags().StringVarP(&assignee, "assign", "a", "", "Only tasks for this assignee")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of tasks to show")
	return cmd
}

func newNextCommand(ctx *commandContext) *cobra.Command {
	var assignee string

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the task that should be worked on next",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				task, err := eng.NextTask(cmd.Context(), assignee)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, task)
				}
				if task == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No tasks ready")
					return nil
				}
				return renderTaskDetail(cmd.OutOrStdout(), task)
			})
		},
	}

	cmd.Flags().StringVarP(&assignee, "assign", "a", "", "Only tasks for this assignee")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				task, err := eng.GetTask(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, task)
				}
				return renderTaskDetail(cmd.OutOrStdout(), task)
			})
		},
	}
}

func printTasks(cmd *cobra.Command, ctx *commandContext, tasks []*queue.Task, emptyMessage string) error {
	if ctx.JSONMode() {
		return writeJSON(cmd, tasks)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), emptyMessage)
		return nil
	}
	renderTaskTable(cmd.OutOrStdout(), tasks)
	return nil
}
