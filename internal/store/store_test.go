package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/driftline/driftline/internal/concept"
)

// openStores builds one of each backend so every contract test runs against
// both.
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	t.Cleanup(func() { fileStore.Close() })

	sqliteStore, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "evolution.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{"file": fileStore, "sqlite": sqliteStore}
}

func makeRecord(era string, dims, count int) concept.EraRecord {
	examples := make([]concept.Example, count)
	for i := range examples {
		vec := make([]float32, dims)
		for j := range vec {
			vec[j] = float32(i+1) * 0.25 * float32(j+1)
		}
		examples[i] = concept.Example{
			ID:          fmt.Sprintf("%s-%d", era, i),
			Text:        fmt.Sprintf("example %d for %s", i, era),
			Vector:      vec,
			Model:       "all-minilm:l6-v2",
			GeneratedAt: time.Date(2024, 3, 1, 12, 0, i, 0, time.UTC),
		}
	}
	return concept.EraRecord{
		Era:       era,
		Source:    concept.SourceGenerated,
		Complete:  true,
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Examples:  examples,
	}
}

func TestStore_NormalizesConceptKeys(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Save("  Freedom ", "1900s", makeRecord("1900s", 8, 3)); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			// Any spelling of the key addresses the same concept.
			if _, err := s.LoadEra("freedom", "1900s"); err != nil {
				t.Errorf("LoadEra(folded key) error = %v", err)
			}
			if _, err := s.Load("FREEDOM"); err != nil {
				t.Errorf("Load(upper key) error = %v", err)
			}

			keys, err := s.Concepts()
			if err != nil {
				t.Fatalf("Concepts() error = %v", err)
			}
			if len(keys) != 1 || keys[0] != "freedom" {
				t.Errorf("Concepts() = %v, want [freedom]", keys)
			}

			if err := s.Save("", "1900s", makeRecord("1900s", 8, 1)); !errors.Is(err, concept.ErrEmptyWord) {
				t.Errorf("Save(empty key) error = %v, want ErrEmptyWord", err)
			}

			if err := s.DeleteConcept("Freedom"); err != nil {
				t.Errorf("DeleteConcept(unfolded key) error = %v", err)
			}
		})
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			want := makeRecord("1900s", 8, 3)
			if err := s.Save("freedom", "1900s", want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, err := s.LoadEra("freedom", "1900s")
			if err != nil {
				t.Fatalf("LoadEra() error = %v", err)
			}

			if got.Era != want.Era || got.Source != want.Source || got.Complete != want.Complete {
				t.Errorf("record header = %+v, want %+v", got, want)
			}
			if len(got.Examples) != len(want.Examples) {
				t.Fatalf("examples = %d, want %d", len(got.Examples), len(want.Examples))
			}
			for i := range want.Examples {
				w, g := want.Examples[i], got.Examples[i]
				if g.ID != w.ID || g.Text != w.Text || g.Model != w.Model {
					t.Errorf("example %d = %+v, want %+v", i, g, w)
				}
				if len(g.Vector) != len(w.Vector) {
					t.Fatalf("example %d vector length = %d, want %d", i, len(g.Vector), len(w.Vector))
				}
				for j := range w.Vector {
					if g.Vector[j] != w.Vector[j] {
						t.Errorf("example %d vector[%d] = %v, want %v (must be bit-exact)", i, j, g.Vector[j], w.Vector[j])
					}
				}
			}
		})
	}
}

func TestStore_SaveIdempotent(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			rec := makeRecord("1900s", 4, 2)
			if err := s.Save("freedom", "1900s", rec); err != nil {
				t.Fatalf("first Save() error = %v", err)
			}
			if err := s.Save("freedom", "1900s", rec); err != nil {
				t.Fatalf("second Save() error = %v", err)
			}

			got, err := s.Load("freedom")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(got) != 1 {
				t.Errorf("eras = %d, want 1", len(got))
			}
			if len(got["1900s"].Examples) != 2 {
				t.Errorf("examples = %d, want 2", len(got["1900s"].Examples))
			}
		})
	}
}

func TestStore_ReplaceEraLeavesSiblingsUntouched(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Save("freedom", "1900s", makeRecord("1900s", 4, 3)); err != nil {
				t.Fatal(err)
			}
			if err := s.Save("freedom", "2020s", makeRecord("2020s", 4, 3)); err != nil {
				t.Fatal(err)
			}

			replacement := makeRecord("1900s", 4, 5)
			if err := s.Save("freedom", "1900s", replacement); err != nil {
				t.Fatalf("replacement Save() error = %v", err)
			}

			records, err := s.Load("freedom")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(records["1900s"].Examples) != 5 {
				t.Errorf("replaced era examples = %d, want 5", len(records["1900s"].Examples))
			}
			if len(records["2020s"].Examples) != 3 {
				t.Errorf("sibling era examples = %d, want 3 (must be untouched)", len(records["2020s"].Examples))
			}
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Load("unknown-concept"); !errors.Is(err, ErrConceptNotFound) {
				t.Errorf("Load(unknown) error = %v, want ErrConceptNotFound", err)
			}
			if _, err := s.LoadEra("unknown-concept", "1900s"); !errors.Is(err, ErrConceptNotFound) {
				t.Errorf("LoadEra(unknown) error = %v, want ErrConceptNotFound", err)
			}

			if err := s.Save("freedom", "1900s", makeRecord("1900s", 4, 2)); err != nil {
				t.Fatal(err)
			}
			if _, err := s.LoadEra("freedom", "medieval"); !errors.Is(err, ErrEraNotFound) {
				t.Errorf("LoadEra(existing concept, absent era) error = %v, want ErrEraNotFound", err)
			}
			if !IsNotFound(fmt.Errorf("wrapped: %w", ErrEraNotFound)) {
				t.Error("IsNotFound() should match wrapped era errors")
			}
		})
	}
}

func TestStore_DimensionMismatchLeavesExistingEraUntouched(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			eraA := makeRecord("1900s", 384, 2)
			if err := s.Save("freedom", "1900s", eraA); err != nil {
				t.Fatal(err)
			}

			err := s.Save("freedom", "2020s", makeRecord("2020s", 256, 2))
			if !errors.Is(err, ErrDimensionMismatch) {
				t.Fatalf("mismatched Save() error = %v, want ErrDimensionMismatch", err)
			}

			// Era A is intact, era B never appeared.
			got, err := s.LoadEra("freedom", "1900s")
			if err != nil {
				t.Fatalf("LoadEra() after failed save error = %v", err)
			}
			if len(got.Examples) != 2 || len(got.Examples[0].Vector) != 384 {
				t.Error("era A changed after a rejected save")
			}
			if _, err := s.LoadEra("freedom", "2020s"); !errors.Is(err, ErrEraNotFound) {
				t.Errorf("rejected era should be absent, got %v", err)
			}
		})
	}
}

func TestStore_MixedDimensionsWithinRecordRejected(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			rec := makeRecord("1900s", 4, 2)
			rec.Examples[1].Vector = []float32{1, 2}

			if err := s.Save("freedom", "1900s", rec); !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("Save() error = %v, want ErrDimensionMismatch", err)
			}
			if _, err := s.Load("freedom"); !errors.Is(err, ErrConceptNotFound) {
				t.Errorf("nothing should have been written, got %v", err)
			}
		})
	}
}

func TestStore_EmptyRecordRejected(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Save("freedom", "1900s", concept.EraRecord{Era: "1900s"})
			if !errors.Is(err, ErrNoExamples) {
				t.Errorf("Save() error = %v, want ErrNoExamples", err)
			}
		})
	}
}

func TestStore_ConceptsAndDelete(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Save("freedom", "1900s", makeRecord("1900s", 4, 1)); err != nil {
				t.Fatal(err)
			}
			if err := s.Save("civil liberty", "1900s", makeRecord("1900s", 4, 1)); err != nil {
				t.Fatal(err)
			}

			keys, err := s.Concepts()
			if err != nil {
				t.Fatalf("Concepts() error = %v", err)
			}
			sort.Strings(keys)
			if len(keys) != 2 || keys[0] != "civil liberty" || keys[1] != "freedom" {
				t.Errorf("Concepts() = %v", keys)
			}

			if err := s.DeleteConcept("freedom"); err != nil {
				t.Fatalf("DeleteConcept() error = %v", err)
			}
			if _, err := s.Load("freedom"); !errors.Is(err, ErrConceptNotFound) {
				t.Errorf("Load() after delete error = %v, want ErrConceptNotFound", err)
			}
			if err := s.DeleteConcept("freedom"); !errors.Is(err, ErrConceptNotFound) {
				t.Errorf("second DeleteConcept() error = %v, want ErrConceptNotFound", err)
			}
		})
	}
}

func TestStore_ConcurrentSavesDistinctConcepts(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			errs := make([]error, 8)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := fmt.Sprintf("word-%d", i)
					errs[i] = s.Save(key, "1900s", makeRecord("1900s", 4, 2))
				}(i)
			}
			wg.Wait()

			for i, err := range errs {
				if err != nil {
					t.Errorf("concurrent Save() #%d error = %v", i, err)
				}
			}

			keys, err := s.Concepts()
			if err != nil {
				t.Fatal(err)
			}
			if len(keys) != 8 {
				t.Errorf("Concepts() = %d, want 8", len(keys))
			}
		})
	}
}

func TestFileStore_EscapesAwkwardLabels(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	// Labels with separators must not escape the store root or collide.
	if err := s.Save("a/b", "early/middle", makeRecord("early/middle", 4, 1)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.LoadEra("a/b", "early/middle")
	if err != nil {
		t.Fatalf("LoadEra() error = %v", err)
	}
	if got.Era != "early/middle" {
		t.Errorf("era = %q", got.Era)
	}
}

func TestVectorBlobRoundTrip(t *testing.T) {
	vec := []float32{0, 1, -1, 0.1, 3.1415927, -2.7182817, 1e-8, 1e8}
	got, err := decodeVector(encodeVector(vec))
	if err != nil {
		t.Fatalf("decodeVector() error = %v", err)
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("component %d = %v, want %v", i, got[i], vec[i])
		}
	}

	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("malformed blob should error")
	}
}
