package main

import (
	"fmt"
	"os"

	"github.com/driftline/driftline/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new driftline repository",
	Long: `Initialize a new driftline repository in the current directory.

Creates:
  .driftline/
  ├── config.json     # Default config
  ├── vectors/        # Per-concept era records (file backend)
  └── cache/          # Generation response cache (gitignored)`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, exitCode := getRepoRoot()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	if config.IsRepository(root) {
		exitWithError(ExitError, "directory already contains a driftline repository")
	}

	if err := os.MkdirAll(config.DriftlinePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating .driftline directory: %v", err)
	}
	if err := os.MkdirAll(config.VectorsPath(root), 0755); err != nil {
		exitWithError(ExitError, "creating vectors directory: %v", err)
	}
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}

	cfg := config.Default()
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "creating config.json: %v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized driftline repository in %s\n", root)
	} else {
		outputJSON(StatusResponse{
			Status: "initialized",
			Path:   root,
		})
	}

	return nil
}
