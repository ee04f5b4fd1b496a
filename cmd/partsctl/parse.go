package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/parser"
	"github.com/dakshin/partsquote/internal/infrastructure/extractor"
	"github.com/dakshin/partsquote/internal/infrastructure/extractor/pdftext"
	"github.com/dakshin/partsquote/internal/infrastructure/extractor/plaintext"
	"github.com/dakshin/partsquote/internal/infrastructure/extractor/spreadsheet"
)

func newParseCmd() *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a parts list locally and print the line items",
		Long:  "Parse a .txt, .pdf or .xlsx parts list without contacting the API.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := parser.DefaultRules()
			if rulesPath != "" {
				loaded, err := parser.LoadRules(rulesPath)
				if err != nil {
					return err
				}
				rules = loaded
			}

			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer file.Close()

			router := extractor.NewRouter(plaintext.NewExtractor(), pdftext.NewExtractor(), spreadsheet.NewExtractor())
			text, err := router.Extract(cmd.Context(), filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), file)
			if err != nil {
				return err
			}

			items, stats := parser.New(rules).ParseWithStats(text)
			return printJSON(cmd.OutOrStdout(), domain.ParseReport{Items: items, Stats: stats})
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "YAML file overriding brand and category rules")
	return cmd
}
