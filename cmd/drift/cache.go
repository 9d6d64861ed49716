package main

import (
	"fmt"

	"github.com/driftline/driftline/internal/concept"
	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/llm"
	"github.com/spf13/cobra"
)

var (
	cacheCount    int
	cacheIdentity string
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)

	cacheInvalidateCmd.Flags().IntVarP(&cacheCount, "count", "c", 0, "Example count of the cached batch (default: configured examples_per_era)")
	cacheInvalidateCmd.Flags().StringVar(&cacheIdentity, "identity", "", "Generator identity of the cached batch (default: configured model)")
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the generation response cache",
	Long: `Commands for inspecting and clearing cached generation responses.

Responses are keyed by (word, era, count, generator identity), so a
model change naturally misses old entries without invalidation.`,
}

// CacheStatsResponse is the response for cache stats.
type CacheStatsResponse struct {
	Entries int    `json:"entries"`
	Path    string `json:"path"`
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size",
	RunE:  runCacheStats,
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	c := mustOpenCache(repoRoot)

	if humanOutput {
		fmt.Printf("%d cached responses in %s\n", c.Len(), config.GenerationCachePath(repoRoot))
	} else {
		outputJSON(CacheStatsResponse{
			Entries: c.Len(),
			Path:    config.GenerationCachePath(repoRoot),
		})
	}
	return nil
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached responses",
	RunE:  runCacheClear,
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	c := mustOpenCache(repoRoot)

	removed := c.Len()
	if err := c.Clear(); err != nil {
		exitWithError(ExitError, "clearing cache: %v", err)
	}

	if humanOutput {
		fmt.Printf("Removed %d cached responses\n", removed)
	} else {
		outputJSON(map[string]any{"status": "cleared", "removed": removed})
	}
	return nil
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <word> <era>",
	Short: "Remove one cached response",
	Long: `Remove the cached generation response for a (word, era) pair so the
next build regenerates it. Count and identity default to the current
configuration; pass them explicitly to target a batch cached under
older settings.`,
	Args: cobra.ExactArgs(2),
	RunE: runCacheInvalidate,
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
	key, err := concept.NormalizeKey(args[0])
	if err != nil {
		exitWithError(ExitError, "invalid word: %v", err)
	}
	era := args[1]

	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	count := cacheCount
	if count == 0 {
		count = cfg.ExamplesPerEra
	}
	identity := cacheIdentity
	if identity == "" {
		model := config.GetOpenRouterModel()
		if model == "" {
			model = llm.DefaultModel
		}
		identity = "openrouter/" + model
	}

	c := mustOpenCache(repoRoot)
	removed, err := c.Invalidate(key, era, count, identity)
	if err != nil {
		exitWithError(ExitError, "invalidating cache: %v", err)
	}

	if humanOutput {
		if removed {
			fmt.Printf("Invalidated %q in %s\n", key, era)
		} else {
			fmt.Printf("No cached response for %q in %s\n", key, era)
		}
	} else {
		outputJSON(map[string]any{"status": "ok", "removed": removed})
	}
	return nil
}
