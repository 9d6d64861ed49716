// Package config handles repository and global configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents repository configuration stored in .driftline/config.json.
// Eras is the default chronological order used for timelines; drift is
// computed in this order unless the caller supplies another one. Chronology
// is never inferred from era labels.
type Config struct {
	Eras           []string `json:"eras"`
	ExamplesPerEra int      `json:"examples_per_era"`
	Backend        string   `json:"backend"`                   // "file" or "sqlite"
	EmbedModel     string   `json:"embed_model,omitempty"`     // Ollama embedding model
	EmbedDims      int      `json:"embed_dims,omitempty"`      // expected vector dimensions
	EmbedURL       string   `json:"embed_url,omitempty"`       // Ollama base URL
	CorpusPath     string   `json:"corpus_path,omitempty"`     // override for the fallback corpus
	UseGeneration  bool     `json:"use_generation"`            // false forces fallback mode
	CacheResponses bool     `json:"cache_responses"`           // generation response caching
}

const (
	DriftlineDir = ".driftline"
	ConfigFile   = "config.json"
	VectorsDir   = "vectors"
	DBFile       = "evolution.db"
	CacheDir     = "cache"

	GenerationCacheFile = "generation.json"

	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// DefaultEras is the era order written by init.
var DefaultEras = []string{"1900s", "1950s", "2020s"}

// Default returns the configuration written by init.
func Default() *Config {
	return &Config{
		Eras:           append([]string(nil), DefaultEras...),
		ExamplesPerEra: 5,
		Backend:        BackendFile,
		UseGeneration:  true,
		CacheResponses: true,
	}
}

// DriftlinePath returns the path to the .driftline directory from a root path.
func DriftlinePath(root string) string {
	return filepath.Join(root, DriftlineDir)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, DriftlineDir, CacheDir)
}

// GenerationCachePath returns the path of the generation response cache file.
func GenerationCachePath(root string) string {
	return filepath.Join(root, DriftlineDir, CacheDir, GenerationCacheFile)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, DriftlineDir, ConfigFile)
}

// VectorsPath returns the FileStore root from a repository root.
func VectorsPath(root string) string {
	return filepath.Join(root, DriftlineDir, VectorsDir)
}

// DBPath returns the SQLiteStore path from a repository root.
func DBPath(root string) string {
	return filepath.Join(root, DriftlineDir, DBFile)
}

// IsRepository checks if the given path contains a driftline repository.
func IsRepository(root string) bool {
	info, err := os.Stat(DriftlinePath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find a driftline repository.
// Returns the repository root path or an error if not found.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a driftline repository (no .driftline directory found)")
		}
		abs = parent
	}
}

// Load reads configuration from the repository at the given root.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Backend == "" {
		cfg.Backend = BackendFile
	}
	if cfg.Backend != BackendFile && cfg.Backend != BackendSQLite {
		return nil, fmt.Errorf("invalid backend %q (want %q or %q)", cfg.Backend, BackendFile, BackendSQLite)
	}
	if cfg.ExamplesPerEra <= 0 {
		cfg.ExamplesPerEra = 5
	}

	return &cfg, nil
}

// Save writes configuration to the repository at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
