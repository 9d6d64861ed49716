package generate

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/driftline/driftline/internal/concept"
)

//go:embed corpus.json
var embeddedCorpus []byte

// Corpus is the static fallback dataset: era-labeled example sentences per
// word, used when the generation capability is unavailable or disabled.
type Corpus struct {
	entries map[string]map[string][]string
}

// LoadEmbeddedCorpus loads the corpus compiled into the binary.
func LoadEmbeddedCorpus() (*Corpus, error) {
	return parseCorpus(embeddedCorpus)
}

// LoadCorpusFile loads a corpus from a JSON file with the same layout as the
// embedded dataset: {"word": {"era": ["example", ...]}}.
func LoadCorpusFile(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	return parseCorpus(data)
}

func parseCorpus(data []byte) (*Corpus, error) {
	var raw map[string]map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing corpus: %w", err)
	}

	entries := make(map[string]map[string][]string, len(raw))
	for word, eras := range raw {
		key, err := concept.NormalizeKey(word)
		if err != nil {
			return nil, fmt.Errorf("corpus word %q: %w", word, err)
		}
		entries[key] = eras
	}

	return &Corpus{entries: entries}, nil
}

// Examples returns up to count examples for a normalized word and era.
// The boolean reports whether the (word, era) pair exists at all.
func (c *Corpus) Examples(word, era string, count int) ([]string, bool) {
	eras, ok := c.entries[word]
	if !ok {
		return nil, false
	}
	list, ok := eras[era]
	if !ok {
		return nil, false
	}

	if count < len(list) {
		list = list[:count]
	}
	out := make([]string, len(list))
	copy(out, list)
	return out, true
}

// Words returns the number of words in the corpus.
func (c *Corpus) Words() int {
	return len(c.entries)
}
