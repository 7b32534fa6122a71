package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vodworks/internal/catalog"
	"vodworks/internal/jobqueue"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one movie record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid movie id %q", args[0])
			}

			return ctx.withStores(func(store *catalog.Store, _ *jobqueue.Queue) error {
				movie, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if movie == nil {
					return fmt.Errorf("movie #%d not found", id)
				}

				rows := [][]string{
					{"ID", strconv.FormatInt(movie.ID, 10)},
					{"Title", movie.Title},
					{"Status", string(movie.Status)},
				}
				if movie.ReleaseYear != 0 {
					rows = append(rows, []string{"Year", strconv.Itoa(movie.ReleaseYear)})
				}
				if movie.DurationMinutes != 0 {
					rows = append(rows, []string{"Duration", fmt.Sprintf("%d min", movie.DurationMinutes)})
				}
				if len(movie.Genres) > 0 {
					rows = append(rows, []string{"Genres", strings.Join(movie.Genres, ", ")})
				}
				if movie.Description != "" {
					rows = append(rows, []string{"Description", movie.Description})
				}
				if movie.TrailerURL != "" {
					rows = append(rows, []string{"Trailer", movie.TrailerURL})
				}
				if movie.SourcePath != "" {
					rows = append(rows, []string{"Source", movie.SourcePath})
				}
				if movie.ManifestPath != "" {
					rows = append(rows, []string{"Manifest", movie.ManifestPath})
				}
				if movie.PosterPath != "" {
					rows = append(rows, []string{"Poster", movie.PosterPath})
				}
				if movie.ErrorMessage != "" {
					rows = append(rows, []string{"Error", movie.ErrorMessage})
				}
				rows = append(rows,
					[]string{"Created", movie.CreatedAt.Format(time.RFC3339)},
					[]string{"Updated", movie.UpdatedAt.Format(time.RFC3339)},
				)

				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Field", "Value"},
					rows,
					[]columnAlignment{alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
