package main

import (
	"github.com/spf13/cobra"
)

func newImportsCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "imports [batch-id]",
		Short: "Show recent import batches, or one batch by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()
			if len(args) == 1 {
				batch, err := client.getImport(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), batch)
			}
			batches, err := client.listImports(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), batches)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum batches to list")
	return cmd
}
