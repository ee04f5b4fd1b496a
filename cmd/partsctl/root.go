package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	apiURL  string
	token   string
	timeout time.Duration
}

func (o *globalOptions) client() *apiClient {
	return newAPIClient(o.apiURL, o.token, &http.Client{Timeout: o.timeout})
}

// NewRootCmd builds the partsctl command tree. apiURL and token seed the flag defaults.
func NewRootCmd(apiURL, token string) *cobra.Command {
	opts := &globalOptions{apiURL: apiURL, token: token, timeout: 30 * time.Second}

	cmd := &cobra.Command{
		Use:           "partsctl",
		Short:         "Operate the parts quoting service",
		Long:          "partsctl parses supplier parts lists locally and drives the enrichment queue through the partsquote API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", opts.apiURL, "partsquote API base URL")
	flags.StringVar(&opts.token, "token", opts.token, "bearer token for the API")
	flags.DurationVar(&opts.timeout, "timeout", opts.timeout, "HTTP request timeout")

	cmd.AddCommand(newParseCmd())
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newImportsCmd(opts))
	cmd.AddCommand(newQueueCmd(opts))
	cmd.AddCommand(newPartsCmd(opts))
	return cmd
}

func printJSON(out io.Writer, payload any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
