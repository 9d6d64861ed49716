package main

import (
	"fmt"

	"github.com/driftline/driftline/internal/concept"
	"github.com/driftline/driftline/internal/store"
	"github.com/driftline/driftline/internal/timeline"
	"github.com/spf13/cobra"
)

var rankTopN int

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().IntVarP(&rankTopN, "top", "n", 0, "Number of results (default 6, max 50)")
}

// RankedResult is one example in rank output, without the raw vector.
type RankedResult struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// RankResponse is the response for the rank command.
type RankResponse struct {
	Concept  string         `json:"concept"`
	Era      string         `json:"era"`
	Source   string         `json:"source"`
	Complete bool           `json:"complete"`
	Results  []RankedResult `json:"results"`
	Total    int            `json:"total"`
}

var rankCmd = &cobra.Command{
	Use:   "rank <word> <era>",
	Short: "Rank an era's examples by typicality",
	Long: `Rank the stored examples of a word in one era by cosine similarity
to the era's centroid. The most representative usages come first;
ties keep generation order.

A complete=false response means generation produced fewer examples
than requested, so the ranking rests on thinner evidence.`,
	Args: cobra.ExactArgs(2),
	RunE: runRank,
}

func runRank(cmd *cobra.Command, args []string) error {
	key, err := concept.NormalizeKey(args[0])
	if err != nil {
		exitWithError(ExitError, "invalid word: %v", err)
	}
	era := args[1]

	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	st := mustOpenStore(repoRoot, cfg)
	defer st.Close()

	ranking, err := timeline.NewRanker(st).RankEra(key, era, rankTopN)
	if err != nil {
		if store.IsNotFound(err) {
			exitWithError(ExitNotFound, "%v", err)
		}
		exitWithError(ExitError, "ranking %q in era %q: %v", key, era, err)
	}

	results := make([]RankedResult, len(ranking.Results))
	for i, r := range ranking.Results {
		results[i] = RankedResult{ID: r.Example.ID, Text: r.Example.Text, Score: r.Score}
	}

	if humanOutput {
		fmt.Printf("%q in %s [%s]", key, era, ranking.Source)
		if !ranking.Complete {
			fmt.Printf(" (incomplete)")
		}
		fmt.Printf("\n\n")
		for i, r := range results {
			fmt.Printf("%d. [%.3f] %s\n", i+1, r.Score, truncateString(r.Text, RankTextMaxLen))
		}
	} else {
		outputJSON(RankResponse{
			Concept:  key,
			Era:      era,
			Source:   string(ranking.Source),
			Complete: ranking.Complete,
			Results:  results,
			Total:    len(results),
		})
	}

	return nil
}
