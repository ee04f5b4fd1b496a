package main

import (
	"github.com/spf13/cobra"
)

func newPartsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parts",
		Short: "Work with the enriched parts catalog",
	}
	cmd.AddCommand(newPartsEnrichCmd(opts))
	return cmd
}

func newPartsEnrichCmd(opts *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "enrich [part-number...]",
		Short: "Queue catalog parts for another enrichment pass",
		Long: "With part numbers, queues exactly those parts. Without, queues up to 50 parts " +
			"that were never enriched or have no vehicle fitment; --force drops that condition.",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := opts.client().requeueParts(cmd.Context(), args, force)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "include parts that already have enrichment data")
	return cmd
}
