package store

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/driftline/driftline/internal/concept"
)

// SQLiteStore persists concepts in a single SQLite database. Each Save runs
// in one transaction that replaces exactly one era's rows, so per-era
// replacement is atomic and sibling eras are never touched.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates a SQLite-backed store at the given path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes; a single connection also
	// serializes per-concept writers for free.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		-- One row per concept; dimensions fixed by the first save
		CREATE TABLE IF NOT EXISTS concepts (
			key TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL,
			model TEXT,
			created_at TEXT NOT NULL
		);

		-- One row per (concept, era)
		CREATE TABLE IF NOT EXISTS eras (
			concept TEXT NOT NULL REFERENCES concepts(key) ON DELETE CASCADE,
			era TEXT NOT NULL,
			source TEXT NOT NULL,
			complete INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (concept, era)
		);

		-- Examples in generation order; ord preserves display and tie-break order
		CREATE TABLE IF NOT EXISTS examples (
			concept TEXT NOT NULL,
			era TEXT NOT NULL,
			ord INTEGER NOT NULL,
			id TEXT NOT NULL,
			text TEXT NOT NULL,
			vector BLOB NOT NULL,
			model TEXT,
			generated_at TEXT,
			PRIMARY KEY (concept, era, ord),
			FOREIGN KEY (concept, era) REFERENCES eras(concept, era) ON DELETE CASCADE
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Save writes or replaces one era record in a single transaction.
func (s *SQLiteStore) Save(conceptKey, era string, rec concept.EraRecord) error {
	conceptKey, err := normalizeKey(conceptKey)
	if err != nil {
		return err
	}
	dims, err := validateRecord(rec)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var stored int
	err = tx.QueryRow(`SELECT dimensions FROM concepts WHERE key = ?`, conceptKey).Scan(&stored)
	switch {
	case err == nil:
		if stored != dims {
			return fmt.Errorf("%w: got %d, concept stores %d", ErrDimensionMismatch, dims, stored)
		}
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.Exec(`INSERT INTO concepts (key, dimensions, model, created_at) VALUES (?, ?, ?, ?)`,
			conceptKey, dims, rec.Examples[0].Model, time.Now().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("inserting concept: %w", err)
		}
	default:
		return fmt.Errorf("querying concept: %w", err)
	}

	// Replace the era wholesale: old rows out, new rows in, one transaction.
	if _, err := tx.Exec(`DELETE FROM examples WHERE concept = ? AND era = ?`, conceptKey, era); err != nil {
		return fmt.Errorf("clearing era examples: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM eras WHERE concept = ? AND era = ?`, conceptKey, era); err != nil {
		return fmt.Errorf("clearing era: %w", err)
	}

	complete := 0
	if rec.Complete {
		complete = 1
	}
	_, err = tx.Exec(`INSERT INTO eras (concept, era, source, complete, created_at) VALUES (?, ?, ?, ?, ?)`,
		conceptKey, era, string(rec.Source), complete, formatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting era: %w", err)
	}

	for i, ex := range rec.Examples {
		_, err = tx.Exec(`INSERT INTO examples (concept, era, ord, id, text, vector, model, generated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			conceptKey, era, i, ex.ID, ex.Text, encodeVector(ex.Vector), ex.Model, formatTime(ex.GeneratedAt))
		if err != nil {
			return fmt.Errorf("inserting example %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}
	return nil
}

// Load returns all era records for a concept.
func (s *SQLiteStore) Load(conceptKey string) (map[string]concept.EraRecord, error) {
	conceptKey, err := normalizeKey(conceptKey)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT era, source, complete, created_at FROM eras WHERE concept = ?`, conceptKey)
	if err != nil {
		return nil, fmt.Errorf("querying eras: %w", err)
	}
	defer rows.Close()

	records := make(map[string]concept.EraRecord)
	for rows.Next() {
		rec, err := scanEra(rows)
		if err != nil {
			return nil, err
		}
		records[rec.Era] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating eras: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrConceptNotFound, conceptKey)
	}

	for era, rec := range records {
		rec.Examples, err = s.loadExamples(conceptKey, era)
		if err != nil {
			return nil, err
		}
		records[era] = rec
	}
	return records, nil
}

// LoadEra returns one era record.
func (s *SQLiteStore) LoadEra(conceptKey, era string) (concept.EraRecord, error) {
	conceptKey, err := normalizeKey(conceptKey)
	if err != nil {
		return concept.EraRecord{}, err
	}
	row := s.db.QueryRow(`SELECT era, source, complete, created_at FROM eras WHERE concept = ? AND era = ?`, conceptKey, era)
	rec, err := scanEra(row)
	if errors.Is(err, sql.ErrNoRows) {
		var n int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM concepts WHERE key = ?`, conceptKey).Scan(&n); err != nil {
			return concept.EraRecord{}, fmt.Errorf("querying concept: %w", err)
		}
		if n == 0 {
			return concept.EraRecord{}, fmt.Errorf("%w: %q", ErrConceptNotFound, conceptKey)
		}
		return concept.EraRecord{}, fmt.Errorf("%w: %q has no era %q", ErrEraNotFound, conceptKey, era)
	}
	if err != nil {
		return concept.EraRecord{}, err
	}

	rec.Examples, err = s.loadExamples(conceptKey, era)
	if err != nil {
		return concept.EraRecord{}, err
	}
	return rec, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEra(row scanner) (concept.EraRecord, error) {
	var rec concept.EraRecord
	var source, createdAt string
	var complete int
	if err := row.Scan(&rec.Era, &source, &complete, &createdAt); err != nil {
		return concept.EraRecord{}, err
	}
	rec.Source = concept.Source(source)
	rec.Complete = complete != 0
	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}

func (s *SQLiteStore) loadExamples(conceptKey, era string) ([]concept.Example, error) {
	rows, err := s.db.Query(`SELECT id, text, vector, model, generated_at
		FROM examples WHERE concept = ? AND era = ? ORDER BY ord`, conceptKey, era)
	if err != nil {
		return nil, fmt.Errorf("querying examples: %w", err)
	}
	defer rows.Close()

	var examples []concept.Example
	for rows.Next() {
		var ex concept.Example
		var blob []byte
		var generatedAt string
		if err := rows.Scan(&ex.ID, &ex.Text, &blob, &ex.Model, &generatedAt); err != nil {
			return nil, fmt.Errorf("scanning example: %w", err)
		}
		ex.Vector, err = decodeVector(blob)
		if err != nil {
			return nil, err
		}
		ex.GeneratedAt = parseTime(generatedAt)
		examples = append(examples, ex)
	}
	return examples, rows.Err()
}

// Concepts lists the keys of all persisted concepts.
func (s *SQLiteStore) Concepts() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM concepts ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying concepts: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning concept: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DeleteConcept removes a concept and all its eras.
func (s *SQLiteStore) DeleteConcept(conceptKey string) error {
	conceptKey, err := normalizeKey(conceptKey)
	if err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM concepts WHERE key = ?`, conceptKey)
	if err != nil {
		return fmt.Errorf("deleting concept: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrConceptNotFound, conceptKey)
	}

	// Cascade rows manually; foreign_keys pragma is off by default.
	if _, err := tx.Exec(`DELETE FROM examples WHERE concept = ?`, conceptKey); err != nil {
		return fmt.Errorf("deleting examples: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM eras WHERE concept = ?`, conceptKey); err != nil {
		return fmt.Errorf("deleting eras: %w", err)
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeVector packs a float32 vector into a little-endian BLOB. Bit-exact
// round trip keeps cosine similarity stable across save/load.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks a little-endian BLOB into a float32 vector.
func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("malformed vector blob: %d bytes", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
