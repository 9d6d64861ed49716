package main

import (
	"fmt"

	"github.com/driftline/driftline/internal/concept"
	"github.com/driftline/driftline/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:   "delete <word>",
	Short: "Delete a concept and all its eras",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	key, err := concept.NormalizeKey(args[0])
	if err != nil {
		exitWithError(ExitError, "invalid word: %v", err)
	}

	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	st := mustOpenStore(repoRoot, cfg)
	defer st.Close()

	if err := st.DeleteConcept(key); err != nil {
		if store.IsNotFound(err) {
			exitWithError(ExitNotFound, "%v", err)
		}
		exitWithError(ExitError, "deleting %q: %v", key, err)
	}

	if humanOutput {
		fmt.Printf("Deleted %q\n", key)
	} else {
		outputJSON(map[string]string{"status": "deleted", "concept": key})
	}
	return nil
}
