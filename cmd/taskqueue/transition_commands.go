package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskqueue/internal/engine"
	"taskqueue/internal/queue"
)

type transitionFunc func(ctx context.Context, eng *engine.Engine, id string) (*queue.Task, error)

func newTransitionCommands(ctx *commandContext) []*cobra.Command {
	var result string
	complete := newTransitionCommand(ctx, "complete", "Mark a task completed", func(c context.Context, eng *engine.Engine, id string) (*queue.Task, error) {
		var value any
		if strings.TrimSpace(result) != "" {
			value = parseLooseValue(result)
		}
		return eng.CompleteTask(c, id, value)
	})
	complete.Flags().StringVarP(&result, "result", "r", "", "Result to record (JSON or plain text)")

	var reason string
	fail := newTransitionCommand(ctx, "fail", "Mark a task failed", func(c context.Context, eng *engine.Engine, id string) (*queue.Task, error) {
		return eng.FailTask(c, id, reason)
	})
	fail.Flags().StringVarP(&reason, "reason", "r", "", "Failure reason to record")

	return []*cobra.Command{
		newTransitionCommand(ctx, "start", "Move a pending task to in progress", func(c context.Context, eng *engine.Engine, id string) (*queue.Task, error) {
			return eng.StartTask(c, id)
		}),
		complete,
		fail,
		newTransitionCommand(ctx, "cancel", "Cancel a pending or in-progress task", func(c context.Context, eng *engine.Engine, id string) (*queue.Task, error) {
			return eng.CancelTask(c, id)
		}),
	}
}

func newTransitionCommand(ctx *commandContext, use, short string, apply transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				task, err := apply(cmd.Context(), eng, args[0])
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, task)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", task.ID, displayLabel(string(task.Status)))
				return nil
			})
		},
	}
}
