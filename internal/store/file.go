package store

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/driftline/driftline/internal/concept"
)

const (
	// metaFileName holds per-concept metadata (dimensions, model).
	metaFileName = "meta.json"

	// eraFileSuffix is the extension for era record files.
	eraFileSuffix = ".json"
)

// conceptMeta records the vector schema established by a concept's first save.
type conceptMeta struct {
	Dimensions int       `json:"dimensions"`
	Model      string    `json:"model,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// FileStore persists concepts as directories of era record files:
//
//	<root>/<concept>/meta.json
//	<root>/<concept>/<era>.json
//
// Era writes go through a temp file and rename, so a crash mid-write leaves
// either the old or the new record intact and never disturbs sibling eras.
// Concept and era names are path-escaped, so free-form labels are safe.
type FileStore struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-concept write serialization
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating store root: %w", err)
	}
	return &FileStore{root: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// conceptLock returns the write lock for one concept. Writers for the same
// concept are serialized; distinct concepts proceed independently.
func (s *FileStore) conceptLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *FileStore) conceptDir(key string) string {
	return filepath.Join(s.root, url.PathEscape(key))
}

func (s *FileStore) eraPath(key, era string) string {
	return filepath.Join(s.conceptDir(key), url.PathEscape(era)+eraFileSuffix)
}

// Save writes or replaces one era record.
func (s *FileStore) Save(conceptKey, era string, rec concept.EraRecord) error {
	conceptKey, err := normalizeKey(conceptKey)
	if err != nil {
		return err
	}
	dims, err := validateRecord(rec)
	if err != nil {
		return err
	}

	lock := s.conceptLock(conceptKey)
	lock.Lock()
	defer lock.Unlock()

	dir := s.conceptDir(conceptKey)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating concept directory: %w", err)
	}

	// Dimensionality is checked against the concept's metadata before any
	// write so a mismatched save leaves every existing era untouched.
	meta, err := s.loadMeta(dir)
	switch {
	case err == nil:
		if meta.Dimensions != dims {
			return fmt.Errorf("%w: got %d, concept stores %d", ErrDimensionMismatch, dims, meta.Dimensions)
		}
	case os.IsNotExist(err):
		meta = conceptMeta{
			Dimensions: dims,
			Model:      rec.Examples[0].Model,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.writeJSON(filepath.Join(dir, metaFileName), meta); err != nil {
			return fmt.Errorf("writing concept metadata: %w", err)
		}
	default:
		return fmt.Errorf("reading concept metadata: %w", err)
	}

	if err := s.writeJSON(s.eraPath(conceptKey, era), rec); err != nil {
		return fmt.Errorf("writing era record: %w", err)
	}
	return nil
}

// writeJSON writes v to path atomically via a temp file and rename.
func (s *FileStore) writeJSON(path string, v any) error {
	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	enc := json.NewEncoder(f)
	if err := enc.Encode(v); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

func (s *FileStore) loadMeta(dir string) (conceptMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		return conceptMeta{}, err
	}
	var meta conceptMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return conceptMeta{}, fmt.Errorf("parsing concept metadata: %w", err)
	}
	return meta, nil
}

// Load returns all era records for a concept.
func (s *FileStore) Load(conceptKey string) (map[string]concept.EraRecord, error) {
	conceptKey, err := normalizeKey(conceptKey)
	if err != nil {
		return nil, err
	}
	dir := s.conceptDir(conceptKey)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrConceptNotFound, conceptKey)
		}
		return nil, fmt.Errorf("reading concept directory: %w", err)
	}

	records := make(map[string]concept.EraRecord)
	for _, entry := range entries {
		name := entry.Name()
		if name == metaFileName || !strings.HasSuffix(name, eraFileSuffix) || strings.HasSuffix(name, ".tmp") {
			continue
		}
		rec, err := s.readRecord(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		records[rec.Era] = rec
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %q has no era records", ErrConceptNotFound, conceptKey)
	}
	return records, nil
}

// LoadEra returns one era record.
func (s *FileStore) LoadEra(conceptKey, era string) (concept.EraRecord, error) {
	conceptKey, err := normalizeKey(conceptKey)
	if err != nil {
		return concept.EraRecord{}, err
	}
	rec, err := s.readRecord(s.eraPath(conceptKey, era))
	if err == nil {
		return rec, nil
	}
	if !os.IsNotExist(err) {
		return concept.EraRecord{}, err
	}

	if _, dirErr := os.Stat(s.conceptDir(conceptKey)); os.IsNotExist(dirErr) {
		return concept.EraRecord{}, fmt.Errorf("%w: %q", ErrConceptNotFound, conceptKey)
	}
	return concept.EraRecord{}, fmt.Errorf("%w: %q has no era %q", ErrEraNotFound, conceptKey, era)
}

func (s *FileStore) readRecord(path string) (concept.EraRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return concept.EraRecord{}, err
	}
	var rec concept.EraRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return concept.EraRecord{}, fmt.Errorf("parsing era record %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}

// Concepts lists the keys of all persisted concepts.
func (s *FileStore) Concepts() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading store root: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		key, err := url.PathUnescape(entry.Name())
		if err != nil {
			continue // not a store-managed directory
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// DeleteConcept removes a concept and all its eras.
func (s *FileStore) DeleteConcept(conceptKey string) error {
	conceptKey, err := normalizeKey(conceptKey)
	if err != nil {
		return err
	}
	lock := s.conceptLock(conceptKey)
	lock.Lock()
	defer lock.Unlock()

	dir := s.conceptDir(conceptKey)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("%w: %q", ErrConceptNotFound, conceptKey)
	}
	return os.RemoveAll(dir)
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error {
	return nil
}
