package embedding

import "context"

// Provider generates embeddings from text.
//
// Implementations must be deterministic: identical input under the same
// model version yields an identical vector.
type Provider interface {
	// Embed generates an embedding for the given text.
	// Returns ErrEmptyInput if the text is empty or whitespace-only.
	Embed(ctx context.Context, text string) (Embedding, error)

	// EmbedBatch generates embeddings for a slice of texts. The result is
	// element-for-element identical to calling Embed on each text; batching
	// is a throughput optimization, not a semantic change.
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}
