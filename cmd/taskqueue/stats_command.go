package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskqueue/internal/engine"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var agent string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine.Engine) error {
				out := cmd.OutOrStdout()
				if agent != "" {
					stats, err := eng.AgentStats(cmd.Context(), agent)
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, stats)
					}
					fmt.Fprintf(out, "Tasks assigned to %s: %d\n", stats.Agent, stats.TotalAssigned)
					renderSummary(out, stats.Summary)
					return nil
				}

				stats, err := eng.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, stats)
				}
				fmt.Fprintf(out, "Total tasks: %d\n", stats.Total)
				renderSummary(out, stats.Summary)
				renderAssigneeCounts(out, stats.ByAssignee)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&agent, "agent", "a", "", "Restrict statistics to one assignee")
	return cmd
}
