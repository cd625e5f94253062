// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/market-research/internal/browser"
	"github.com/pdiddy/market-research/internal/fetch"
	"github.com/pdiddy/market-research/internal/research"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Render one page and print its extracted text",
	Long: `Fetch renders a single URL in an isolated headless browser session and
prints the extracted article text. It is the same step the research loop
runs for every candidate, useful for checking how a site extracts.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Int("max-length", 0, "maximum characters kept (default from config)")
	fetchCmd.Flags().Duration("timeout", 0, "navigation timeout (default from config)")
	fetchCmd.Flags().Bool("json", false, "output the fetch result as JSON")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	maxLength, _ := cmd.Flags().GetInt("max-length")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	fetcher := fetch.New(browser.New(appConfig.Browser, appConfig.Fetch, logger), appConfig.Fetch, logger)
	defer fetcher.Close()

	url := args[0]
	if !fetch.IsBinary(url) {
		if err := fetcher.Start(ctx); err != nil {
			return err
		}
	}
	res := fetcher.Fetch(ctx, url, fetch.Options{MaxLength: maxLength, Timeout: timeout})

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		if err := research.FormatJSON(res, os.Stdout); err != nil {
			return err
		}
	} else if res.Success {
		fmt.Fprintf(os.Stdout, "%s\n%s\n\n%s\n", res.Title, res.URL, res.Content)
		fmt.Fprintf(os.Stderr, "fetched in %s\n", res.Duration.Round(time.Millisecond))
	}

	if !res.Success {
		return fmt.Errorf("fetch %s: %s", url, res.Error)
	}
	return nil
}
