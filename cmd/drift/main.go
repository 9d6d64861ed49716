// Package main provides the drift CLI entry point.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "drift",
	Short: "Track how word meanings change across historical eras",
	Long: `drift builds semantic timelines for words: it generates era-specific
usage examples, embeds them as vectors, and ranks them to show how a
word's meaning has shifted from one era to the next.

Vectors are stored per concept and per era in a local .driftline
repository. All commands output JSON by default for easy integration
with other tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// getRepoRoot returns the working root, or exits with an error.
func getRepoRoot() (string, int) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}

	// Check DRIFT_ROOT environment variable first
	if root := os.Getenv("DRIFT_ROOT"); root != "" {
		cwd = root
	}

	return cwd, 0
}
