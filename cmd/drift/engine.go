package main

import (
	"os"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/embedding"
	"github.com/driftline/driftline/internal/generate"
	"github.com/driftline/driftline/internal/llm"
	"github.com/driftline/driftline/internal/store"
)

// mustFindRepository locates the nearest .driftline repository, exits on error.
func mustFindRepository() string {
	start, exitCode := getRepoRoot()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	repoRoot, err := config.FindRepository(start)
	if err != nil {
		exitWithError(ExitConfigError, "not in a driftline repository (run 'drift init' first)")
	}
	return repoRoot
}

// mustLoadConfig loads repository config, exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenStore opens the configured vector store backend.
// The caller is responsible for calling Close() on the returned store.
func mustOpenStore(repoRoot string, cfg *config.Config) store.Store {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := store.OpenSQLiteStore(config.DBPath(repoRoot))
		if err != nil {
			exitWithError(ExitDataError, "opening store: %v", err)
		}
		return s
	default:
		s, err := store.NewFileStore(config.VectorsPath(repoRoot))
		if err != nil {
			exitWithError(ExitDataError, "opening store: %v", err)
		}
		return s
	}
}

// newProvider builds the embedding provider from repository config.
func newProvider(cfg *config.Config) *embedding.OllamaProvider {
	var opts []embedding.OllamaOption
	if cfg.EmbedURL != "" {
		opts = append(opts, embedding.WithBaseURL(cfg.EmbedURL))
	}
	if cfg.EmbedModel != "" {
		opts = append(opts, embedding.WithModel(cfg.EmbedModel))
	}
	if cfg.EmbedDims > 0 {
		opts = append(opts, embedding.WithDimensions(cfg.EmbedDims))
	}
	return embedding.NewOllamaProvider(opts...)
}

// mustLoadCorpus loads the fallback corpus, preferring a configured file
// over the embedded dataset.
func mustLoadCorpus(cfg *config.Config) *generate.Corpus {
	if cfg.CorpusPath != "" {
		corpus, err := generate.LoadCorpusFile(cfg.CorpusPath)
		if err != nil {
			exitWithError(ExitConfigError, "loading corpus %s: %v", cfg.CorpusPath, err)
		}
		return corpus
	}
	corpus, err := generate.LoadEmbeddedCorpus()
	if err != nil {
		exitWithError(ExitError, "loading embedded corpus: %v", err)
	}
	return corpus
}

// mustOpenCache opens the persistent generation response cache.
func mustOpenCache(repoRoot string) *generate.FileCache {
	c, err := generate.OpenFileCache(config.GenerationCachePath(repoRoot))
	if err != nil {
		exitWithError(ExitDataError, "opening generation cache: %v", err)
	}
	return c
}

// newGenerator wires the example generator from repository config. With
// useFallback (or use_generation disabled) the generator serves the static
// corpus and never touches the API. noCache disables response caching for
// this invocation only.
func newGenerator(repoRoot string, cfg *config.Config, useFallback, noCache bool) *generate.Generator {
	corpus := mustLoadCorpus(cfg)

	if useFallback || !cfg.UseGeneration {
		return generate.NewGenerator(nil, generate.WithCorpus(corpus))
	}

	apiKey := config.GetOpenRouterAPIKey()
	if apiKey == "" {
		exitWithError(ExitAuthError, "OpenRouter API key not set\n\nSet OPENROUTER_API_KEY or add openrouter_api_key to %s.\nUse --fallback to build from the static corpus instead.", config.GlobalConfigPath())
	}

	clientOpts := []llm.OpenRouterOption{llm.WithAPIKey(apiKey)}
	if model := config.GetOpenRouterModel(); model != "" {
		clientOpts = append(clientOpts, llm.WithModel(model))
	}
	if global, err := config.LoadGlobalConfig(); err == nil {
		if global.OpenRouterSiteURL != "" || global.OpenRouterAppName != "" {
			clientOpts = append(clientOpts, llm.WithAttribution(global.OpenRouterSiteURL, global.OpenRouterAppName))
		}
	}
	client := llm.NewOpenRouterClient(clientOpts...)

	opts := []generate.GeneratorOption{generate.WithCorpus(corpus)}
	if cfg.CacheResponses && !noCache {
		opts = append(opts, generate.WithCache(mustOpenCache(repoRoot)))
	} else {
		opts = append(opts, generate.WithCache(nil))
	}
	return generate.NewGenerator(client, opts...)
}
