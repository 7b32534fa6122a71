package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vodworks/internal/submit"
)

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var forceFlag bool

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a movie and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid movie id %q", args[0])
			}
			if !forceFlag {
				return fmt.Errorf("removal deletes the record and all media files; re-run with --force to confirm")
			}
			return ctx.withGateway(func(gateway *submit.Gateway) error {
				if err := gateway.Remove(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed movie #%d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&forceFlag, "force", false, "Confirm deletion")
	return cmd
}
