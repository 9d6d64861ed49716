package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/generate"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

// ConfigResponse is the response for config get commands.
type ConfigResponse struct {
	Eras           []string `json:"eras"`
	ExamplesPerEra int      `json:"examples_per_era"`
	Backend        string   `json:"backend"`
	EmbedModel     string   `json:"embed_model,omitempty"`
	EmbedURL       string   `json:"embed_url,omitempty"`
	CorpusPath     string   `json:"corpus_path,omitempty"`
	UseGeneration  bool     `json:"use_generation"`
	CacheResponses bool     `json:"cache_responses"`
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set repository configuration values.

Usage:
  drift config                       # Show all config
  drift config eras                  # Get specific value
  drift config eras 1900s,1950s,2020s
  drift config backend sqlite

Keys:
  eras              Default era order, oldest first (comma-separated)
  examples-per-era  Examples generated per era (1-20)
  backend           Vector store backend (file, sqlite)
  embed-model       Ollama embedding model
  embed-url         Ollama base URL
  corpus-path       Path to a custom fallback corpus file
  use-generation    Use the generation API (false forces fallback)
  cache-responses   Cache generation responses`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	// No args: show all config
	if len(args) == 0 {
		if humanOutput {
			fmt.Printf("eras:              %s\n", strings.Join(cfg.Eras, ","))
			fmt.Printf("examples-per-era:  %d\n", cfg.ExamplesPerEra)
			fmt.Printf("backend:           %s\n", cfg.Backend)
			fmt.Printf("embed-model:       %s\n", cfg.EmbedModel)
			fmt.Printf("embed-url:         %s\n", cfg.EmbedURL)
			fmt.Printf("corpus-path:       %s\n", cfg.CorpusPath)
			fmt.Printf("use-generation:    %t\n", cfg.UseGeneration)
			fmt.Printf("cache-responses:   %t\n", cfg.CacheResponses)
		} else {
			outputJSON(ConfigResponse{
				Eras:           cfg.Eras,
				ExamplesPerEra: cfg.ExamplesPerEra,
				Backend:        cfg.Backend,
				EmbedModel:     cfg.EmbedModel,
				EmbedURL:       cfg.EmbedURL,
				CorpusPath:     cfg.CorpusPath,
				UseGeneration:  cfg.UseGeneration,
				CacheResponses: cfg.CacheResponses,
			})
		}
		return nil
	}

	key := normalizeConfigKey(args[0])

	// One arg: get specific value
	if len(args) == 1 {
		value, ok := configValue(cfg, key)
		if !ok {
			exitWithError(ExitError, "unknown configuration key: %s", args[0])
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{strings.ReplaceAll(key, "-", "_"): value})
		}
		return nil
	}

	// Two args: set value
	value := args[1]
	if err := setConfigValue(cfg, key, value); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if err := cfg.Save(repoRoot); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{
			Status: "updated",
			Key:    key,
			Value:  value,
		})
	}

	return nil
}

func configValue(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "eras":
		return strings.Join(cfg.Eras, ","), true
	case "examples-per-era":
		return strconv.Itoa(cfg.ExamplesPerEra), true
	case "backend":
		return cfg.Backend, true
	case "embed-model":
		return cfg.EmbedModel, true
	case "embed-url":
		return cfg.EmbedURL, true
	case "corpus-path":
		return cfg.CorpusPath, true
	case "use-generation":
		return strconv.FormatBool(cfg.UseGeneration), true
	case "cache-responses":
		return strconv.FormatBool(cfg.CacheResponses), true
	}
	return "", false
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "eras":
		eras := splitEras(value)
		if len(eras) == 0 {
			return fmt.Errorf("eras cannot be empty")
		}
		cfg.Eras = eras
	case "examples-per-era":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > generate.MaxExamplesPerEra {
			return fmt.Errorf("examples-per-era must be between 1 and %d", generate.MaxExamplesPerEra)
		}
		cfg.ExamplesPerEra = n
	case "backend":
		if value != config.BackendFile && value != config.BackendSQLite {
			return fmt.Errorf("backend must be %q or %q", config.BackendFile, config.BackendSQLite)
		}
		cfg.Backend = value
	case "embed-model":
		cfg.EmbedModel = value
	case "embed-url":
		cfg.EmbedURL = value
	case "corpus-path":
		if value != "" {
			if _, err := os.Stat(value); err != nil {
				return fmt.Errorf("corpus file not found: %s", value)
			}
		}
		cfg.CorpusPath = value
	case "use-generation":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("use-generation must be true or false")
		}
		cfg.UseGeneration = b
	case "cache-responses":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache-responses must be true or false")
		}
		cfg.CacheResponses = b
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// splitEras splits a comma-separated era list, dropping empty entries.
func splitEras(value string) []string {
	var eras []string
	for _, era := range strings.Split(value, ",") {
		if era = strings.TrimSpace(era); era != "" {
			eras = append(eras, era)
		}
	}
	return eras
}

// normalizeConfigKey converts key formats (embed_model, EmbedModel) to kebab-case.
func normalizeConfigKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "-")
	return key
}
