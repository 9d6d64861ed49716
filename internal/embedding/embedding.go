// Package embedding provides vector embedding generation for example texts.
package embedding

import "errors"

// ErrEmptyInput is returned when the input text is empty or whitespace-only.
// Callers must fix the input; the error is never retried.
var ErrEmptyInput = errors.New("cannot embed empty or whitespace-only text")

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32 // The embedding vector (e.g., 384 dimensions for all-minilm)
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}
