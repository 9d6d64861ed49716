// Package llm provides text-generation clients for the example generator.
package llm

import "context"

// Completer is the text-generation capability consumed by the example
// generator. Implementations wrap one vendor API each; the generator never
// inspects the concrete type.
type Completer interface {
	// Complete sends a prompt and returns the raw completion text.
	// Errors are classified transient or fatal; see IsTransient.
	// Timeouts apply per call, so retry loops time out per attempt.
	Complete(ctx context.Context, prompt string) (string, error)

	// Identity returns a stable vendor/model identifier. It participates in
	// generation cache keys so switching models never serves stale batches.
	Identity() string
}
