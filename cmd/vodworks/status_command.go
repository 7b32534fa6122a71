package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vodworks/internal/catalog"
	"vodworks/internal/jobqueue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(store *catalog.Store, queue *jobqueue.Queue) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				queued, leased, err := queue.Depth(cmd.Context())
				if err != nil {
					return err
				}

				rows := [][]string{
					{"Total movies", strconv.Itoa(stats.Total)},
					{"Uploaded", strconv.Itoa(stats.Uploaded)},
					{"Processing", strconv.Itoa(stats.Processing)},
					{"Ready", strconv.Itoa(stats.Ready)},
					{"Failed", strconv.Itoa(stats.Failed)},
					{"Queue depth", strconv.Itoa(queued)},
					{"Queue leased", strconv.Itoa(leased)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Metric", "Value"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
