package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vodworks/internal/catalog"
	"vodworks/internal/jobqueue"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List movies in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(store *catalog.Store, _ *jobqueue.Queue) error {
				var statuses []catalog.Status
				for _, value := range strings.Split(statusFlag, ",") {
					trimmed := strings.TrimSpace(value)
					if trimmed == "" {
						continue
					}
					statuses = append(statuses, catalog.Status(trimmed))
				}

				movies, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(movies) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No movies found.")
					return nil
				}

				rows := make([][]string, 0, len(movies))
				for _, movie := range movies {
					year := ""
					if movie.ReleaseYear != 0 {
						year = strconv.Itoa(movie.ReleaseYear)
					}
					detail := movie.ErrorMessage
					if movie.Status == catalog.StatusReady {
						detail = movie.ManifestPath
					}
					rows = append(rows, []string{
						strconv.FormatInt(movie.ID, 10),
						movie.Title,
						year,
						string(movie.Status),
						detail,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Year", "Status", "Detail"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Comma-separated status filter (uploaded, processing, ready, failed)")
	return cmd
}
