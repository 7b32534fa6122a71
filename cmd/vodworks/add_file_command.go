package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vodworks/internal/submit"
)

var sourceFileExtensions = map[string]struct{}{
	".mp4": {},
	".mkv": {},
	".mov": {},
	".avi": {},
}

func newAddFileCommand(ctx *commandContext) *cobra.Command {
	var (
		titleFlag       string
		descriptionFlag string
		trailerFlag     string
		yearFlag        int
		durationFlag    int
		genresFlag      []string
	)

	cmd := &cobra.Command{
		Use:   "add-file <path>",
		Short: "Submit a local video file for transcoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}

			ext := strings.ToLower(filepath.Ext(info.Name()))
			if _, ok := sourceFileExtensions[ext]; !ok {
				return fmt.Errorf("unsupported file extension %q", ext)
			}

			title := strings.TrimSpace(titleFlag)
			if title == "" {
				title = strings.TrimSuffix(filepath.Base(absPath), ext)
			}

			return ctx.withGateway(func(gateway *submit.Gateway) error {
				movie, err := gateway.CreateMovieFromFile(cmd.Context(), submit.Submission{
					Title:           title,
					Description:     descriptionFlag,
					TrailerURL:      trailerFlag,
					ReleaseYear:     yearFlag,
					DurationMinutes: durationFlag,
					Genres:          genresFlag,
				}, absPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted movie #%d (%s)\n", movie.ID, movie.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&titleFlag, "title", "", "Movie title (defaults to the file name)")
	cmd.Flags().StringVar(&descriptionFlag, "description", "", "Movie description")
	cmd.Flags().StringVar(&trailerFlag, "trailer-url", "", "Trailer URL")
	cmd.Flags().IntVar(&yearFlag, "year", 0, "Release year")
	cmd.Flags().IntVar(&durationFlag, "duration", 0, "Duration in minutes")
	cmd.Flags().StringSliceVar(&genresFlag, "genre", nil, "Genre (repeatable)")
	return cmd
}
