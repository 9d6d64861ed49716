package timeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/driftline/driftline/internal/concept"
	"github.com/driftline/driftline/internal/store"
)

const (
	// DefaultTopN is the result count used when callers pass 0.
	DefaultTopN = 6

	// MaxTopN bounds a single ranking request.
	MaxTopN = 50
)

// ErrNoEraOrder indicates a timeline request without a caller-supplied era
// order. Chronology is never inferred from era labels.
var ErrNoEraOrder = errors.New("era order is required")

// RankedExample is one example with its similarity to the era centroid.
type RankedExample struct {
	Example concept.Example `json:"example"`
	Score   float64         `json:"score"`
}

// EraRanking is the result of ranking one era's examples.
type EraRanking struct {
	Concept  string          `json:"concept"`
	Era      string          `json:"era"`
	Source   concept.Source  `json:"source"`
	Complete bool            `json:"complete"` // false flags reduced confidence
	Results  []RankedExample `json:"results"`
}

// TimelineEntry is one era in a drift timeline.
type TimelineEntry struct {
	Era      string          `json:"era"`
	Source   concept.Source  `json:"source"`
	Complete bool            `json:"complete"`
	Drift    float64         `json:"drift"` // 1 - cos(centroid, previous centroid); 0 for the first era
	Top      []RankedExample `json:"top"`
}

// Timeline is the ordered drift view of a concept across eras.
type Timeline struct {
	Concept string          `json:"concept"`
	Entries []TimelineEntry `json:"entries"`
}

// Ranker answers similarity and drift queries over a store. It is a pure
// reader: every call loads a consistent snapshot and mutates nothing.
type Ranker struct {
	store store.Store
}

// NewRanker creates a Ranker over the given store.
func NewRanker(s store.Store) *Ranker {
	return &Ranker{store: s}
}

// RankEra scores every example in an era by cosine similarity to the era's
// centroid and returns the topN, descending, ties broken by generation
// order. Incomplete records are still ranked; the Complete flag in the
// result lets callers show reduced confidence.
func (r *Ranker) RankEra(conceptKey, era string, topN int) (EraRanking, error) {
	topN, err := clampTopN(topN)
	if err != nil {
		return EraRanking{}, err
	}

	rec, err := r.store.LoadEra(conceptKey, era)
	if err != nil {
		return EraRanking{}, err
	}

	return EraRanking{
		Concept:  conceptKey,
		Era:      era,
		Source:   rec.Source,
		Complete: rec.Complete,
		Results:  rankRecord(rec, topN),
	}, nil
}

// BuildTimeline ranks each era in the caller-supplied order and computes the
// drift between consecutive present eras. Ordered eras with no stored record
// are skipped. The first present era always has drift 0.
func (r *Ranker) BuildTimeline(conceptKey string, eraOrder []string, topN int) (Timeline, error) {
	if len(eraOrder) == 0 {
		return Timeline{}, ErrNoEraOrder
	}
	topN, err := clampTopN(topN)
	if err != nil {
		return Timeline{}, err
	}

	records, err := r.store.Load(conceptKey)
	if err != nil {
		return Timeline{}, err
	}

	timeline := Timeline{Concept: conceptKey}
	var prevCentroid []float32

	for _, era := range eraOrder {
		rec, ok := records[era]
		if !ok {
			continue
		}

		centroid := Centroid(vectorsOf(rec))
		drift := 0.0
		if prevCentroid != nil {
			drift = clamp(1-CosineSimilarity(centroid, prevCentroid), 0, 2)
		}

		timeline.Entries = append(timeline.Entries, TimelineEntry{
			Era:      rec.Era,
			Source:   rec.Source,
			Complete: rec.Complete,
			Drift:    drift,
			Top:      rankRecord(rec, topN),
		})
		prevCentroid = centroid
	}

	if len(timeline.Entries) == 0 {
		return Timeline{}, fmt.Errorf("%w: %q has none of the requested eras", store.ErrEraNotFound, conceptKey)
	}
	return timeline, nil
}

// rankRecord scores a record's examples against the era centroid and returns
// the topN. Normalization always happens here, regardless of codec output.
func rankRecord(rec concept.EraRecord, topN int) []RankedExample {
	centroid := Centroid(vectorsOf(rec))

	results := make([]RankedExample, 0, len(rec.Examples))
	for _, ex := range rec.Examples {
		results = append(results, RankedExample{
			Example: ex,
			Score:   CosineSimilarity(Normalize(ex.Vector), centroid),
		})
	}

	// Stable sort keeps generation order for tied scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topN {
		results = results[:topN]
	}
	return results
}

func vectorsOf(rec concept.EraRecord) [][]float32 {
	vecs := make([][]float32, len(rec.Examples))
	for i, ex := range rec.Examples {
		vecs[i] = ex.Vector
	}
	return vecs
}

func clampTopN(topN int) (int, error) {
	if topN == 0 {
		return DefaultTopN, nil
	}
	if topN < 0 || topN > MaxTopN {
		return 0, fmt.Errorf("top_n must be between 1 and %d, got %d", MaxTopN, topN)
	}
	return topN, nil
}
