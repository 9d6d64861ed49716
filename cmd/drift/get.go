package main

import (
	"fmt"
	"sort"

	"github.com/driftline/driftline/internal/concept"
	"github.com/driftline/driftline/internal/store"
	"github.com/spf13/cobra"
)

var getVectors bool

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().BoolVar(&getVectors, "vectors", false, "Include raw vectors in JSON output")
}

// GetExample is one stored example in get output.
type GetExample struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Model       string    `json:"model,omitempty"`
	GeneratedAt string    `json:"generated_at,omitempty"`
	Vector      []float32 `json:"vector,omitempty"`
}

// GetEra is one stored era in get output.
type GetEra struct {
	Era      string       `json:"era"`
	Source   string       `json:"source"`
	Complete bool         `json:"complete"`
	Examples []GetExample `json:"examples"`
}

// GetResponse is the response for the get command.
type GetResponse struct {
	Concept string   `json:"concept"`
	Eras    []GetEra `json:"eras"`
}

var getCmd = &cobra.Command{
	Use:   "get <word> [era]",
	Short: "Show stored examples for a word",
	Long: `Show the stored era records for a word, or a single era if given.
Examples appear in generation order. Vectors are omitted from JSON
output unless --vectors is set.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	key, err := concept.NormalizeKey(args[0])
	if err != nil {
		exitWithError(ExitError, "invalid word: %v", err)
	}

	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	st := mustOpenStore(repoRoot, cfg)
	defer st.Close()

	var records map[string]concept.EraRecord
	if len(args) == 2 {
		rec, err := st.LoadEra(key, args[1])
		if err != nil {
			if store.IsNotFound(err) {
				exitWithError(ExitNotFound, "%v", err)
			}
			exitWithError(ExitError, "loading %q era %q: %v", key, args[1], err)
		}
		records = map[string]concept.EraRecord{rec.Era: rec}
	} else {
		records, err = st.Load(key)
		if err != nil {
			if store.IsNotFound(err) {
				exitWithError(ExitNotFound, "%v", err)
			}
			exitWithError(ExitError, "loading %q: %v", key, err)
		}
	}

	eras := make([]string, 0, len(records))
	for era := range records {
		eras = append(eras, era)
	}
	sort.Strings(eras)

	resp := GetResponse{Concept: key}
	for _, era := range eras {
		rec := records[era]
		ge := GetEra{
			Era:      rec.Era,
			Source:   string(rec.Source),
			Complete: rec.Complete,
			Examples: make([]GetExample, len(rec.Examples)),
		}
		for i, ex := range rec.Examples {
			e := GetExample{ID: ex.ID, Text: ex.Text, Model: ex.Model}
			if !ex.GeneratedAt.IsZero() {
				e.GeneratedAt = ex.GeneratedAt.Format("2006-01-02")
			}
			if getVectors {
				e.Vector = ex.Vector
			}
			ge.Examples[i] = e
		}
		resp.Eras = append(resp.Eras, ge)
	}

	if humanOutput {
		fmt.Printf("%q (%d eras)\n\n", key, len(resp.Eras))
		for _, ge := range resp.Eras {
			fmt.Printf("%s [%s]", ge.Era, ge.Source)
			if !ge.Complete {
				fmt.Printf(" (incomplete)")
			}
			fmt.Printf("\n")
			for i, ex := range ge.Examples {
				fmt.Printf("  %d. %s\n", i+1, truncateString(ex.Text, ListTextMaxLen))
			}
			fmt.Printf("\n")
		}
	} else {
		outputJSON(resp)
	}

	return nil
}
