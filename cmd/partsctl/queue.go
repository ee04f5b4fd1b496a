package main

import (
	"github.com/spf13/cobra"
)

func newQueueCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and control the enrichment queue",
	}
	cmd.AddCommand(newQueueListCmd(opts))
	cmd.AddCommand(newQueueRetryCmd(opts))
	cmd.AddCommand(newQueueClearCmd(opts))
	cmd.AddCommand(newQueueControlCmd(opts, "start", "Start processing pending entries"))
	cmd.AddCommand(newQueueControlCmd(opts, "pause", "Pause processing after the in-flight batch"))
	return cmd
}

func newQueueListCmd(opts *globalOptions) *cobra.Command {
	var (
		status  string
		batchID string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show queue counts and entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot, err := opts.client().listQueue(cmd.Context(), status, batchID, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snapshot)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&status, "status", "", "only entries in this status")
	flags.StringVar(&batchID, "batch", "", "only entries from this import batch")
	flags.IntVar(&limit, "limit", 0, "maximum entries to return")
	return cmd
}

func newQueueRetryCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Requeue a failed or incomplete entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := opts.client().retry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entry)
		},
	}
}

func newQueueClearCmd(opts *globalOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed entries, or every entry with --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope := "completed"
			if all {
				scope = "all"
			}
			result, err := opts.client().clear(cmd.Context(), scope)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "remove entries in every status")
	return cmd
}

func newQueueControlCmd(opts *globalOptions, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := opts.client().control(cmd.Context(), action)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), state)
		},
	}
}
