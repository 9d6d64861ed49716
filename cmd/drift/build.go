package main

import (
	"context"
	"fmt"
	"time"

	"github.com/driftline/driftline/internal/concept"
	"github.com/driftline/driftline/internal/embedding"
	"github.com/driftline/driftline/internal/generate"
	"github.com/driftline/driftline/internal/llm"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	buildEras     []string
	buildCount    int
	buildFallback bool
	buildNoCache  bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringSliceVarP(&buildEras, "eras", "e", nil, "Eras to build (default: configured eras)")
	buildCmd.Flags().IntVarP(&buildCount, "count", "c", 0, "Examples per era (default: configured examples_per_era)")
	buildCmd.Flags().BoolVar(&buildFallback, "fallback", false, "Use the static corpus instead of the generation API")
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "Bypass the generation response cache")
}

// embeddingProvider is the slice of the embedding provider that build needs.
type embeddingProvider interface {
	EmbedBatch(ctx context.Context, texts []string) ([]embedding.Embedding, error)
	ModelName() string
}

// eraSaver is the slice of the store that build needs.
type eraSaver interface {
	Save(conceptKey, era string, rec concept.EraRecord) error
}

// BuildEraResult reports one era's outcome within a build.
type BuildEraResult struct {
	Era      string `json:"era"`
	Examples int    `json:"examples"`
	Complete bool   `json:"complete"`
	Source   string `json:"source,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BuildResponse is the response for the build command.
type BuildResponse struct {
	Concept         string           `json:"concept"`
	Model           string           `json:"model"`
	Eras            []BuildEraResult `json:"eras"`
	Built           int              `json:"built"`
	Failed          int              `json:"failed"`
	DurationSeconds float64          `json:"duration_seconds"`
}

var buildCmd = &cobra.Command{
	Use:   "build <word>",
	Short: "Generate and embed era examples for a word",
	Long: `Generate example sentences for a word in each era, embed them as
vectors, and store the results.

Each era is written independently: a failure in one era leaves the
others intact. Requires Ollama to be running with the embedding model
available. Run 'ollama pull all-minilm:l6-v2' to download the model.

Generation uses the OpenRouter API unless --fallback is given or
use_generation is disabled, in which case examples come from the
built-in static corpus.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	key, err := concept.NormalizeKey(args[0])
	if err != nil {
		exitWithError(ExitError, "invalid word: %v", err)
	}

	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	eras := buildEras
	if len(eras) == 0 {
		eras = cfg.Eras
	}
	if len(eras) == 0 {
		exitWithError(ExitConfigError, "no eras configured; pass --eras or set eras in config")
	}
	count := buildCount
	if count == 0 {
		count = cfg.ExamplesPerEra
	}

	// Check Ollama availability before generating anything
	provider := newProvider(cfg)
	if err := provider.IsAvailable(ctx); err != nil {
		exitWithError(ExitDataError, "Ollama is not running\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai")
	}
	hasModel, err := provider.HasModel(ctx)
	if err != nil {
		exitWithError(ExitError, "checking model availability: %v", err)
	}
	if !hasModel {
		exitWithError(ExitModelNotFound, "Embedding model '%s' not found\n\nRun 'ollama pull %s' to download it.", provider.ModelName(), provider.ModelName())
	}

	gen := newGenerator(repoRoot, cfg, buildFallback, buildNoCache)

	st := mustOpenStore(repoRoot, cfg)
	defer st.Close()

	results := make([]BuildEraResult, 0, len(eras))
	built, failed := 0, 0
	for _, era := range eras {
		res := buildEra(ctx, gen, provider, st, key, era, count)
		if res.Error != "" {
			failed++
		} else {
			built++
		}
		results = append(results, res)
	}

	// An auth failure is never era-specific; surface it as the command result.
	if built == 0 && failed > 0 {
		for _, r := range results {
			if r.Error != "" {
				code := ExitAPIError
				if buildFallback || !cfg.UseGeneration {
					code = ExitDataError
				}
				exitWithError(code, "building %q: all %d eras failed, first error: %s", key, failed, r.Error)
			}
		}
	}

	resp := BuildResponse{
		Concept:         key,
		Model:           provider.ModelName(),
		Eras:            results,
		Built:           built,
		Failed:          failed,
		DurationSeconds: time.Since(start).Seconds(),
	}

	if humanOutput {
		fmt.Printf("Built %q (%d eras, %d failed) in %.1fs\n", key, built, failed, resp.DurationSeconds)
		for _, r := range results {
			if r.Error != "" {
				fmt.Printf("  %-12s FAILED: %s\n", r.Era, r.Error)
				continue
			}
			marker := ""
			if !r.Complete {
				marker = " (incomplete)"
			}
			fmt.Printf("  %-12s %d examples [%s]%s\n", r.Era, r.Examples, r.Source, marker)
		}
	} else {
		outputJSON(resp)
	}

	return nil
}

// buildEra generates, embeds, and stores one era. Errors are returned in the
// result rather than aborting the build; sibling eras are unaffected.
func buildEra(ctx context.Context, gen *generate.Generator, provider embeddingProvider, st eraSaver, key, era string, count int) BuildEraResult {
	out := BuildEraResult{Era: era}

	genRes, err := gen.Generate(ctx, key, era, count)
	if err != nil {
		if llm.IsAuthError(err) {
			exitWithError(ExitAuthError, "generation auth failure: %v", err)
		}
		if llm.IsRateLimited(err) {
			out.Error = fmt.Sprintf("rate limited after retries: %v", err)
			return out
		}
		out.Error = fmt.Sprintf("generating examples: %v", err)
		return out
	}

	embs, err := provider.EmbedBatch(ctx, genRes.Examples)
	if err != nil {
		out.Error = fmt.Sprintf("embedding examples: %v", err)
		return out
	}

	now := time.Now().UTC()
	examples := make([]concept.Example, len(genRes.Examples))
	for i, text := range genRes.Examples {
		examples[i] = concept.Example{
			ID:          uuid.NewString(),
			Text:        text,
			Vector:      embs[i].Vector,
			Model:       provider.ModelName(),
			GeneratedAt: now,
		}
	}

	rec := concept.EraRecord{
		Era:       era,
		Source:    genRes.Source,
		Complete:  genRes.Complete,
		CreatedAt: now,
		Examples:  examples,
	}
	if err := st.Save(key, era, rec); err != nil {
		out.Error = fmt.Sprintf("saving era: %v", err)
		return out
	}

	out.Examples = len(examples)
	out.Complete = genRes.Complete
	out.Source = string(genRes.Source)
	return out
}
