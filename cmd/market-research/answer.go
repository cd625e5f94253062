// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/market-research/internal/archive"
	"github.com/pdiddy/market-research/internal/compose"
	"github.com/pdiddy/market-research/internal/research"
	"github.com/pdiddy/market-research/pkg/types"
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Compose a spoken answer from a saved research result",
	Long: `Answer turns a research result into a short spoken-style answer: the
first sentence of the best chunk, cut to --max-words words, with a hedge when
confidence is below 0.6 and up to three citations.

Read the result from a file written by 'research --out' (--from) or from the
archive (--run).`,
	Args: cobra.NoArgs,
	RunE: runAnswer,
}

func init() {
	answerCmd.Flags().String("from", "", "result YAML written by 'research --out'")
	answerCmd.Flags().String("run", "", "archived run ID")
	answerCmd.Flags().Int("max-words", 0, "word budget (default from config)")
	answerCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(answerCmd)
}

func runAnswer(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	runID, _ := cmd.Flags().GetString("run")

	var (
		res types.ResearchResult
		err error
	)
	switch {
	case from != "" && runID != "":
		return fmt.Errorf("use either --from or --run, not both")
	case from != "":
		res, err = research.ReadResultFile(from)
	case runID != "":
		res, err = loadRun(context.Background(), runID)
	default:
		return fmt.Errorf("provide --from <result.yaml> or --run <id>")
	}
	if err != nil {
		return err
	}

	maxWords := appConfig.Compose.MaxWords
	if cmd.Flags().Changed("max-words") {
		maxWords, _ = cmd.Flags().GetInt("max-words")
	}
	answer := compose.Compose(res.Chunks, res.Query, res.Confidence, maxWords)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return research.FormatJSON(answer, os.Stdout)
	}
	research.FormatAnswer(answer, os.Stdout)
	return nil
}

func loadRun(ctx context.Context, id string) (types.ResearchResult, error) {
	store, err := archive.Open(appConfig.Archive)
	if err != nil {
		return types.ResearchResult{}, err
	}
	defer store.Close()
	return store.Get(ctx, id)
}
