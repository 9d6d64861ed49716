package timeline

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/driftline/driftline/internal/concept"
	"github.com/driftline/driftline/internal/store"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func record(era string, vecs ...[]float32) concept.EraRecord {
	examples := make([]concept.Example, len(vecs))
	for i, v := range vecs {
		examples[i] = concept.Example{
			ID:     fmt.Sprintf("%s-%d", era, i),
			Text:   fmt.Sprintf("usage %d in %s", i, era),
			Vector: v,
		}
	}
	return concept.EraRecord{
		Era:       era,
		Source:    concept.SourceGenerated,
		Complete:  true,
		CreatedAt: time.Now().UTC(),
		Examples:  examples,
	}
}

func TestRankEra_TopNAndMembership(t *testing.T) {
	s := newStore(t)
	ranker := NewRanker(s)

	rec := record("1900s",
		[]float32{1, 0, 0},
		[]float32{0.9, 0.1, 0},
		[]float32{0, 1, 0},
		[]float32{0.8, 0.2, 0},
		[]float32{0, 0, 1},
	)
	if err := s.Save("freedom", "1900s", rec); err != nil {
		t.Fatal(err)
	}

	ranking, err := ranker.RankEra("freedom", "1900s", 3)
	if err != nil {
		t.Fatalf("RankEra() error = %v", err)
	}

	if len(ranking.Results) > 3 {
		t.Errorf("results = %d, want <= 3", len(ranking.Results))
	}

	known := make(map[string]bool)
	for _, ex := range rec.Examples {
		known[ex.ID] = true
	}
	for _, r := range ranking.Results {
		if !known[r.Example.ID] {
			t.Errorf("result %q is not in the era's record", r.Example.ID)
		}
	}

	// Scores descend.
	for i := 1; i < len(ranking.Results); i++ {
		if ranking.Results[i].Score > ranking.Results[i-1].Score {
			t.Errorf("scores not descending at %d: %v > %v", i, ranking.Results[i].Score, ranking.Results[i-1].Score)
		}
	}
}

func TestRankEra_TiesKeepGenerationOrder(t *testing.T) {
	s := newStore(t)
	ranker := NewRanker(s)

	// All identical vectors: every score ties, so ranking must preserve
	// generation order.
	rec := record("1900s",
		[]float32{1, 1, 0},
		[]float32{1, 1, 0},
		[]float32{1, 1, 0},
	)
	if err := s.Save("freedom", "1900s", rec); err != nil {
		t.Fatal(err)
	}

	ranking, err := ranker.RankEra("freedom", "1900s", 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range ranking.Results {
		want := fmt.Sprintf("1900s-%d", i)
		if r.Example.ID != want {
			t.Errorf("result %d = %q, want %q (ties must be stable)", i, r.Example.ID, want)
		}
	}
}

func TestRankEra_DefaultAndInvalidTopN(t *testing.T) {
	s := newStore(t)
	ranker := NewRanker(s)

	vecs := make([][]float32, 10)
	for i := range vecs {
		vecs[i] = []float32{1, float32(i) * 0.01}
	}
	if err := s.Save("freedom", "1900s", record("1900s", vecs...)); err != nil {
		t.Fatal(err)
	}

	ranking, err := ranker.RankEra("freedom", "1900s", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranking.Results) != DefaultTopN {
		t.Errorf("default results = %d, want %d", len(ranking.Results), DefaultTopN)
	}

	if _, err := ranker.RankEra("freedom", "1900s", MaxTopN+1); err == nil {
		t.Error("oversized topN should be rejected")
	}
	if _, err := ranker.RankEra("freedom", "1900s", -2); err == nil {
		t.Error("negative topN should be rejected")
	}
}

func TestRankEra_NotFound(t *testing.T) {
	ranker := NewRanker(newStore(t))

	if _, err := ranker.RankEra("unknown-concept", "1900s", 3); !store.IsNotFound(err) {
		t.Errorf("RankEra(unknown) error = %v, want not-found", err)
	}
}

func TestRankEra_IncompleteRecordStillRanked(t *testing.T) {
	s := newStore(t)
	ranker := NewRanker(s)

	rec := record("1900s", []float32{1, 0}, []float32{0.9, 0.1})
	rec.Complete = false
	if err := s.Save("freedom", "1900s", rec); err != nil {
		t.Fatal(err)
	}

	ranking, err := ranker.RankEra("freedom", "1900s", 5)
	if err != nil {
		t.Fatalf("RankEra() on incomplete record error = %v", err)
	}
	if ranking.Complete {
		t.Error("Complete = true, want false (flag must surface)")
	}
	if len(ranking.Results) != 2 {
		t.Errorf("results = %d, want 2", len(ranking.Results))
	}
}

func TestBuildTimeline_FirstEraDriftZero(t *testing.T) {
	s := newStore(t)
	ranker := NewRanker(s)

	if err := s.Save("freedom", "1900s", record("1900s", []float32{1, 0}, []float32{0.9, 0.1})); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("freedom", "2020s", record("2020s", []float32{0, 1}, []float32{0.1, 0.9})); err != nil {
		t.Fatal(err)
	}

	tl, err := ranker.BuildTimeline("freedom", []string{"1900s", "2020s"}, 3)
	if err != nil {
		t.Fatalf("BuildTimeline() error = %v", err)
	}

	if len(tl.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(tl.Entries))
	}
	if tl.Entries[0].Drift != 0 {
		t.Errorf("first era drift = %v, want 0", tl.Entries[0].Drift)
	}
	if tl.Entries[1].Drift <= 0 || tl.Entries[1].Drift > 2 {
		t.Errorf("second era drift = %v, want in (0, 2]", tl.Entries[1].Drift)
	}
}

func TestBuildTimeline_RewordedDriftsLessThanUnrelated(t *testing.T) {
	base := []([]float32){{1, 0, 0}, {0.95, 0.05, 0}}
	reworded := []([]float32){{0.9, 0.1, 0}, {0.85, 0.15, 0}}
	unrelated := []([]float32){{0, 0, 1}, {0, 0.1, 0.9}}

	driftTo := func(t *testing.T, second [][]float32) float64 {
		t.Helper()
		s := newStore(t)
		if err := s.Save("w", "early", record("early", base...)); err != nil {
			t.Fatal(err)
		}
		if err := s.Save("w", "late", record("late", second...)); err != nil {
			t.Fatal(err)
		}
		tl, err := NewRanker(s).BuildTimeline("w", []string{"early", "late"}, 2)
		if err != nil {
			t.Fatal(err)
		}
		return tl.Entries[1].Drift
	}

	small := driftTo(t, reworded)
	large := driftTo(t, unrelated)
	if small >= large {
		t.Errorf("reworded drift %v should be smaller than unrelated drift %v", small, large)
	}
}

func TestBuildTimeline_SkipsAbsentEras(t *testing.T) {
	s := newStore(t)
	if err := s.Save("freedom", "1900s", record("1900s", []float32{1, 0})); err != nil {
		t.Fatal(err)
	}

	tl, err := NewRanker(s).BuildTimeline("freedom", []string{"medieval", "1900s", "3000s"}, 3)
	if err != nil {
		t.Fatalf("BuildTimeline() error = %v", err)
	}
	if len(tl.Entries) != 1 || tl.Entries[0].Era != "1900s" {
		t.Errorf("entries = %+v, want just 1900s", tl.Entries)
	}
	if tl.Entries[0].Drift != 0 {
		t.Errorf("only present era drift = %v, want 0", tl.Entries[0].Drift)
	}
}

func TestBuildTimeline_Errors(t *testing.T) {
	s := newStore(t)
	ranker := NewRanker(s)

	if _, err := ranker.BuildTimeline("freedom", nil, 3); !errors.Is(err, ErrNoEraOrder) {
		t.Errorf("empty era order error = %v, want ErrNoEraOrder", err)
	}

	if _, err := ranker.BuildTimeline("unknown-concept", []string{"1900s"}, 3); !store.IsNotFound(err) {
		t.Errorf("unknown concept error = %v, want not-found", err)
	}

	if err := s.Save("freedom", "1900s", record("1900s", []float32{1, 0})); err != nil {
		t.Fatal(err)
	}
	if _, err := ranker.BuildTimeline("freedom", []string{"medieval"}, 3); !store.IsNotFound(err) {
		t.Errorf("no ordered era present error = %v, want not-found", err)
	}
}

// Mirrors the cross-case scenario: records saved under differently cased
// words land on one concept once callers normalize, and the timeline honors
// the supplied order.
func TestBuildTimeline_NormalizedConceptScenario(t *testing.T) {
	s := newStore(t)
	ranker := NewRanker(s)

	keyA, err := concept.NormalizeKey("Freedom")
	if err != nil {
		t.Fatal(err)
	}
	keyB, err := concept.NormalizeKey("freedom")
	if err != nil {
		t.Fatal(err)
	}
	if keyA != keyB {
		t.Fatalf("normalized keys differ: %q vs %q", keyA, keyB)
	}

	early := record("1900s",
		[]float32{1, 0, 0}, []float32{0.9, 0.1, 0}, []float32{0.95, 0, 0.05},
		[]float32{0.85, 0.15, 0}, []float32{0.92, 0.08, 0})
	late := record("2020s",
		[]float32{0, 1, 0}, []float32{0.1, 0.9, 0}, []float32{0, 0.95, 0.05},
		[]float32{0.15, 0.85, 0}, []float32{0.08, 0.92, 0})

	if err := s.Save(keyA, "1900s", early); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(keyB, "2020s", late); err != nil {
		t.Fatal(err)
	}

	tl, err := ranker.BuildTimeline(keyB, []string{"1900s", "2020s"}, 3)
	if err != nil {
		t.Fatalf("BuildTimeline() error = %v", err)
	}

	if len(tl.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(tl.Entries))
	}
	if tl.Entries[0].Era != "1900s" || tl.Entries[1].Era != "2020s" {
		t.Errorf("era order = %q, %q", tl.Entries[0].Era, tl.Entries[1].Era)
	}
	for _, e := range tl.Entries {
		if len(e.Top) > 3 {
			t.Errorf("era %s has %d results, want <= 3", e.Era, len(e.Top))
		}
	}
	if tl.Entries[1].Drift == 0 {
		t.Error("drift for 2020s = 0, want non-zero")
	}
}
