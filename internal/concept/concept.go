// Package concept defines the core domain types for tracked words and their eras.
package concept

import (
	"errors"
	"strings"
	"time"
)

// Source identifies how an era's examples were produced.
type Source string

const (
	// SourceGenerated marks examples produced by the generation capability.
	SourceGenerated Source = "generated"

	// SourceFallback marks examples read from the static fallback corpus.
	SourceFallback Source = "fallback"
)

// Example is a single era-labeled usage example with its embedding vector.
// Text and Vector are immutable once stored; regeneration creates new Examples.
type Example struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Vector      []float32 `json:"vector"`
	Model       string    `json:"model,omitempty"`        // Embedding model that produced the vector
	GeneratedAt time.Time `json:"generated_at,omitempty"` // When the text was generated
}

// EraRecord holds the examples for one era of one concept.
// Example order is generation order; it is meaningful for display and
// for tie-breaking in ranking, not for scoring.
type EraRecord struct {
	Era       string    `json:"era"`
	Source    Source    `json:"source"`
	Complete  bool      `json:"complete"`
	CreatedAt time.Time `json:"created_at"`
	Examples  []Example `json:"examples"`
}

// Validation errors.
var (
	ErrEmptyWord    = errors.New("word is required")
	ErrEmptyEra     = errors.New("era is required")
	ErrEmptyExample = errors.New("example text is required")
)

// NormalizeKey converts a word or phrase into its canonical concept key:
// trimmed, case-folded, inner whitespace collapsed to single spaces.
// "Freedom" and "freedom " address the same concept.
func NormalizeKey(word string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(word))
	if key == "" {
		return "", ErrEmptyWord
	}
	return strings.Join(strings.Fields(key), " "), nil
}

// ValidateEra checks that an era label is usable.
func ValidateEra(era string) error {
	if strings.TrimSpace(era) == "" {
		return ErrEmptyEra
	}
	return nil
}

// Dimensions returns the vector dimensionality of the record's examples,
// or 0 if the record has no examples.
func (r EraRecord) Dimensions() int {
	if len(r.Examples) == 0 {
		return 0
	}
	return len(r.Examples[0].Vector)
}
