package main

import (
	"errors"
	"fmt"

	"github.com/driftline/driftline/internal/concept"
	"github.com/driftline/driftline/internal/store"
	"github.com/driftline/driftline/internal/timeline"
	"github.com/spf13/cobra"
)

var (
	timelineEras []string
	timelineTopN int
)

func init() {
	rootCmd.AddCommand(timelineCmd)

	timelineCmd.Flags().StringSliceVarP(&timelineEras, "eras", "e", nil, "Era order, oldest first (default: configured eras)")
	timelineCmd.Flags().IntVarP(&timelineTopN, "top", "n", 0, "Examples per era (default 6, max 50)")
}

// TimelineEraEntry is one era in timeline output, without raw vectors.
type TimelineEraEntry struct {
	Era      string         `json:"era"`
	Source   string         `json:"source"`
	Complete bool           `json:"complete"`
	Drift    float64        `json:"drift"`
	Top      []RankedResult `json:"top"`
}

// TimelineResponse is the response for the timeline command.
type TimelineResponse struct {
	Concept string             `json:"concept"`
	Eras    []TimelineEraEntry `json:"eras"`
	Total   int                `json:"total"`
}

var timelineCmd = &cobra.Command{
	Use:   "timeline <word>",
	Short: "Show how a word's meaning drifted across eras",
	Long: `Walk a word's eras in chronological order and report the semantic
drift at each step: 1 - cosine(era centroid, previous era centroid).
The first era always has drift 0; eras with no stored record are
skipped.

Era order comes from --eras or from the configured era list. Labels
are free-form, so chronology is never inferred from them.`,
	Args: cobra.ExactArgs(1),
	RunE: runTimeline,
}

func runTimeline(cmd *cobra.Command, args []string) error {
	key, err := concept.NormalizeKey(args[0])
	if err != nil {
		exitWithError(ExitError, "invalid word: %v", err)
	}

	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	eraOrder := timelineEras
	if len(eraOrder) == 0 {
		eraOrder = cfg.Eras
	}

	st := mustOpenStore(repoRoot, cfg)
	defer st.Close()

	tl, err := timeline.NewRanker(st).BuildTimeline(key, eraOrder, timelineTopN)
	if err != nil {
		if errors.Is(err, timeline.ErrNoEraOrder) {
			exitWithError(ExitConfigError, "no era order; pass --eras or set eras in config")
		}
		if store.IsNotFound(err) {
			exitWithError(ExitNotFound, "%v", err)
		}
		exitWithError(ExitError, "building timeline for %q: %v", key, err)
	}

	entries := make([]TimelineEraEntry, len(tl.Entries))
	for i, e := range tl.Entries {
		top := make([]RankedResult, len(e.Top))
		for j, r := range e.Top {
			top[j] = RankedResult{ID: r.Example.ID, Text: r.Example.Text, Score: r.Score}
		}
		entries[i] = TimelineEraEntry{
			Era:      e.Era,
			Source:   string(e.Source),
			Complete: e.Complete,
			Drift:    e.Drift,
			Top:      top,
		}
	}

	if humanOutput {
		fmt.Printf("Timeline for %q (%d eras)\n\n", key, len(entries))
		for _, e := range entries {
			fmt.Printf("%s  drift=%.3f [%s]", e.Era, e.Drift, e.Source)
			if !e.Complete {
				fmt.Printf(" (incomplete)")
			}
			fmt.Printf("\n")
			for _, r := range e.Top {
				fmt.Printf("  [%.3f] %s\n", r.Score, truncateString(r.Text, RankTextMaxLen))
			}
			fmt.Printf("\n")
		}
	} else {
		outputJSON(TimelineResponse{
			Concept: key,
			Eras:    entries,
			Total:   len(entries),
		})
	}

	return nil
}
