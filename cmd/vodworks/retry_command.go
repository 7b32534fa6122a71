package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vodworks/internal/submit"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Resubmit a failed movie for transcoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid movie id %q", args[0])
			}
			return ctx.withGateway(func(gateway *submit.Gateway) error {
				if err := gateway.Retry(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Resubmitted movie #%d\n", id)
				return nil
			})
		},
	}
}
