package generate

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/driftline/driftline/internal/concept"
	"github.com/driftline/driftline/internal/llm"
	"github.com/driftline/driftline/internal/retry"
)

const (
	// DefaultExamplesPerEra is the example count used when callers pass 0.
	DefaultExamplesPerEra = 5

	// MaxExamplesPerEra bounds a single generation request.
	MaxExamplesPerEra = 20
)

// Errors returned by the generator.
var (
	// ErrGeneration indicates the generation capability exhausted its retries
	// without producing any usable output. Existing persisted records for the
	// era are left untouched by the caller on this error.
	ErrGeneration = errors.New("example generation failed")

	// ErrCountOutOfRange indicates the requested example count is invalid.
	ErrCountOutOfRange = fmt.Errorf("example count must be between 1 and %d", MaxExamplesPerEra)

	// errUnusableOutput marks a completion that parsed to zero examples.
	// It is retried like a transient failure since re-sampling may recover.
	errUnusableOutput = errors.New("completion contained no usable examples")
)

// Result is the outcome of one generation request. Complete is false when
// fewer than the requested examples were recoverable; the partial list is
// still returned so the caller can persist a partial record.
type Result struct {
	Examples []string
	Complete bool
	Source   concept.Source
}

// Generator produces era-labeled example sentences for words, either through
// a Completer or from the static fallback corpus.
type Generator struct {
	completer    llm.Completer
	cache        ResponseCache
	cacheEnabled bool
	policy       retry.Policy
	corpus       *Corpus
	sf           singleflight.Group
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithCache sets the response cache. Passing nil disables caching.
func WithCache(c ResponseCache) GeneratorOption {
	return func(g *Generator) {
		g.cache = c
		g.cacheEnabled = c != nil
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p retry.Policy) GeneratorOption {
	return func(g *Generator) {
		g.policy = p
	}
}

// WithCorpus sets the fallback corpus used when no completer is configured.
func WithCorpus(c *Corpus) GeneratorOption {
	return func(g *Generator) {
		g.corpus = c
	}
}

// NewGenerator creates a Generator. A nil completer puts the generator in
// fallback mode, serving examples from the corpus only.
func NewGenerator(completer llm.Completer, opts ...GeneratorOption) *Generator {
	g := &Generator{
		completer:    completer,
		cache:        NewCache(),
		cacheEnabled: true,
		policy:       retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Cache returns the generator's response cache (nil when caching is disabled).
func (g *Generator) Cache() ResponseCache {
	return g.cache
}

// Identity returns the identity string of the underlying completer, or
// "fallback" in fallback mode.
func (g *Generator) Identity() string {
	if g.completer == nil {
		return "fallback"
	}
	return g.completer.Identity()
}

// Generate produces up to count example sentences for (word, era).
//
// Concurrent calls for the same (word, era, count, identity) share a single
// in-flight completion; the shared call is detached from caller cancellation
// so an abandoned request still populates the cache for the next caller.
func (g *Generator) Generate(ctx context.Context, word, era string, count int) (Result, error) {
	key, err := concept.NormalizeKey(word)
	if err != nil {
		return Result{}, err
	}
	if err := concept.ValidateEra(era); err != nil {
		return Result{}, err
	}
	if count == 0 {
		count = DefaultExamplesPerEra
	}
	if count < 1 || count > MaxExamplesPerEra {
		return Result{}, ErrCountOutOfRange
	}

	if g.completer == nil {
		return g.fromCorpus(key, era, count)
	}

	cacheKey := CacheKey(key, era, count, g.completer.Identity())

	if g.cacheEnabled {
		if raw, ok := g.cache.Get(cacheKey); ok {
			return resultFromRaw(raw, era, count)
		}
	}

	// The singleflight function runs detached from this caller's context so
	// cancellation abandons the wait, not the call; the retry loop completes
	// and the batch still lands in the cache.
	callCtx := context.WithoutCancel(ctx)
	ch := g.sf.DoChan(cacheKey, func() (any, error) {
		raw, err := g.complete(callCtx, key, era, count)
		if err != nil {
			return "", err
		}
		if g.cacheEnabled {
			g.cache.Put(cacheKey, raw)
		}
		return raw, nil
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return resultFromRaw(res.Val.(string), era, count)
	}
}

// complete invokes the completion capability under the retry policy and
// returns the first raw batch that parses to at least one example.
func (g *Generator) complete(ctx context.Context, word, era string, count int) (string, error) {
	prompt := buildPrompt(word, era, count)

	transient := func(err error) bool {
		return llm.IsTransient(err) || errors.Is(err, errUnusableOutput)
	}

	var raw string
	err := g.policy.Do(ctx, transient, func() error {
		out, err := g.completer.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		if len(parseExamples(out, era, count)) == 0 {
			return errUnusableOutput
		}
		raw = out
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %q in era %q: %w", ErrGeneration, word, era, err)
	}

	return raw, nil
}

// fromCorpus serves a request from the static dataset. The cache is bypassed
// here; there is nothing expensive to memoize.
func (g *Generator) fromCorpus(word, era string, count int) (Result, error) {
	if g.corpus == nil {
		return Result{}, fmt.Errorf("%w: no completer and no fallback corpus configured", ErrGeneration)
	}

	examples, ok := g.corpus.Examples(word, era, count)
	if !ok || len(examples) == 0 {
		return Result{}, fmt.Errorf("%w: %q has no fallback data for era %q", ErrGeneration, word, era)
	}

	return Result{
		Examples: examples,
		Complete: len(examples) >= count,
		Source:   concept.SourceFallback,
	}, nil
}

// resultFromRaw parses a raw batch into a Result. The raw text is known to
// contain at least one example when it was produced by complete; cached
// batches get the same treatment.
func resultFromRaw(raw, era string, count int) (Result, error) {
	examples := parseExamples(raw, era, count)
	if len(examples) == 0 {
		return Result{}, fmt.Errorf("%w: cached batch for era %q is unusable", ErrGeneration, era)
	}
	return Result{
		Examples: examples,
		Complete: len(examples) >= count,
		Source:   concept.SourceGenerated,
	}, nil
}
