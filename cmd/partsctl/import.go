package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newImportCmd(opts *globalOptions) *cobra.Command {
	var start bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Upload a parts list and enqueue its parts for enrichment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer file.Close()

			client := opts.client()
			result, err := client.importFile(cmd.Context(), filepath.Base(path), file)
			if err != nil {
				return err
			}
			if start {
				if _, err := client.control(cmd.Context(), "start"); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().BoolVar(&start, "start", false, "also send an explicit start command")
	return cmd
}
