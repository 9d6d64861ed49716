// Package store persists per-concept, per-era example vector sets.
//
// Two backends implement the same contract: FileStore keeps one JSON file
// per era under a per-concept directory, SQLiteStore keeps everything in a
// single database. Both guarantee that replacing one era's record is atomic
// and never touches sibling eras, and both reject vectors whose
// dimensionality differs from what the concept already stores.
package store

import (
	"errors"

	"github.com/driftline/driftline/internal/concept"
)

// Errors returned by store operations.
var (
	// ErrConceptNotFound indicates the concept has no persisted data.
	ErrConceptNotFound = errors.New("concept not found")

	// ErrEraNotFound indicates the requested era is absent, even though
	// other eras of the concept may exist.
	ErrEraNotFound = errors.New("era not found")

	// ErrDimensionMismatch indicates an incoming vector's dimensionality
	// differs from previously stored vectors for the concept. The save is
	// rejected wholesale; nothing is partially applied.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrNoExamples indicates an attempt to save an era record with no
	// examples.
	ErrNoExamples = errors.New("era record has no examples")
)

// IsNotFound reports whether an error is either flavor of not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConceptNotFound) || errors.Is(err, ErrEraNotFound)
}

// Store is the persistence contract for the evolution engine. The store is
// the sole writer of persisted state; rankers only read. Concept keys are
// normalized on every call, so "Freedom" and "freedom" address the same
// concept no matter which spelling the caller passes.
type Store interface {
	// Save writes or replaces the era record for a concept. The write is
	// atomic with respect to the concept's other eras. Saving the same
	// record twice leaves the store indistinguishable from a single save.
	Save(conceptKey, era string, rec concept.EraRecord) error

	// Load returns all era records for a concept, keyed by era label.
	// Returns ErrConceptNotFound if the concept has no persisted data.
	Load(conceptKey string) (map[string]concept.EraRecord, error)

	// LoadEra returns one era record. Returns ErrConceptNotFound if the
	// concept is absent, ErrEraNotFound if the concept exists but the
	// era does not.
	LoadEra(conceptKey, era string) (concept.EraRecord, error)

	// Concepts lists the keys of all persisted concepts.
	Concepts() ([]string, error)

	// DeleteConcept removes a concept and all its eras.
	// Returns ErrConceptNotFound if the concept is absent.
	DeleteConcept(conceptKey string) error

	// Close releases backend resources.
	Close() error
}

// normalizeKey folds a concept key to its canonical form. The store is the
// sole writer of persisted state, so the normalized-key invariant is
// enforced here rather than trusted to every caller.
func normalizeKey(key string) (string, error) {
	return concept.NormalizeKey(key)
}

// validateRecord checks an incoming era record before any write: at least
// one example, and every vector the same length. Returns that length.
func validateRecord(rec concept.EraRecord) (int, error) {
	if len(rec.Examples) == 0 {
		return 0, ErrNoExamples
	}
	dims := len(rec.Examples[0].Vector)
	if dims == 0 {
		return 0, ErrDimensionMismatch
	}
	for _, ex := range rec.Examples {
		if len(ex.Vector) != dims {
			return 0, ErrDimensionMismatch
		}
	}
	return dims, nil
}
