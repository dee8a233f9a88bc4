package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mealvault/internal/syncqueue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the offline request queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueReplayCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue occupancy by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(queue *syncqueue.Store) error {
				stats, err := queue.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if stats.Total() == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := [][]string{
					{"queued", strconv.Itoa(stats.Queued)},
					{"in_flight", strconv.Itoa(stats.InFlight)},
					{"failed", strconv.Itoa(stats.Failed)},
				}
				table := renderTable([]column{leftColumn("Status"), rightColumn("Count")}, rows)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued requests in replay order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(queue *syncqueue.Store) error {
				entries, err := queue.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						strconv.FormatInt(entry.ID, 10),
						entry.Kind,
						entry.AudioRecordID,
						string(entry.Status),
						strconv.Itoa(entry.RetryCount),
						entry.EnqueuedAt.Format("2006-01-02 15:04:05"),
						entry.LastError,
					})
				}
				table := renderTable(
					[]column{
						rightColumn("ID"), leftColumn("Kind"), leftColumn("Recording"),
						leftColumn("Status"), rightColumn("Retries"), leftColumn("Enqueued"),
						leftColumn("Last Error"),
					},
					rows,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueReplayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Replay queued requests now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd.Context(), func(svc *services) error {
				report, err := svc.replay.ReplayAll(cmd.Context())
				out := cmd.OutOrStdout()
				line := fmt.Sprintf("Attempted %d, replayed %d, requeued %d, abandoned %d, invalid %d",
					report.Attempted, report.Replayed, report.Requeued, report.Abandoned, report.Invalid)
				if shouldColorize(out) {
					if report.Requeued+report.Abandoned == 0 {
						line = ansiGreen + line + ansiReset
					} else {
						line = ansiRed + line + ansiReset
					}
				}
				fmt.Fprintln(out, line)
				return err
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every queued request",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(queue *syncqueue.Store) error {
				if err := queue.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Queue cleared")
				return nil
			})
		},
	}
}
