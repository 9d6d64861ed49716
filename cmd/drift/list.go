package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

// ConceptSummary is one concept in list output.
type ConceptSummary struct {
	Concept string   `json:"concept"`
	Eras    []string `json:"eras"`
}

// ListResponse is the response for the list command.
type ListResponse struct {
	Concepts []ConceptSummary `json:"concepts"`
	Total    int              `json:"total"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored concepts and their eras",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	st := mustOpenStore(repoRoot, cfg)
	defer st.Close()

	keys, err := st.Concepts()
	if err != nil {
		exitWithError(ExitError, "listing concepts: %v", err)
	}
	sort.Strings(keys)

	summaries := make([]ConceptSummary, 0, len(keys))
	for _, key := range keys {
		records, err := st.Load(key)
		if err != nil {
			exitWithError(ExitError, "loading %q: %v", key, err)
		}
		eras := make([]string, 0, len(records))
		for era := range records {
			eras = append(eras, era)
		}
		sort.Strings(eras)
		summaries = append(summaries, ConceptSummary{Concept: key, Eras: eras})
	}

	if humanOutput {
		if len(summaries) == 0 {
			fmt.Println("No concepts stored. Run 'drift build <word>' to add one.")
			return nil
		}
		for _, s := range summaries {
			fmt.Printf("%-20s %s\n", s.Concept, strings.Join(s.Eras, ", "))
		}
	} else {
		outputJSON(ListResponse{Concepts: summaries, Total: len(summaries)})
	}

	return nil
}
