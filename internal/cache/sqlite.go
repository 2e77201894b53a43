// Package cache persists generated AI artifacts so repeated requests for the
// same planet do not call the model again.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// schemaVersion is stored in PRAGMA user_version. Older caches are dropped
// and rebuilt since every row can be regenerated.
const schemaVersion = 2

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
    id         TEXT PRIMARY KEY,
    planet     TEXT NOT NULL,
    feature    TEXT NOT NULL,
    variant    TEXT NOT NULL DEFAULT '',
    encoding   TEXT NOT NULL DEFAULT 'json',
    raw_size   INTEGER NOT NULL,
    payload    BLOB NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (planet, feature, variant)
);
CREATE INDEX IF NOT EXISTS idx_artifacts_planet ON artifacts(planet);
`

// Entry describes a stored artifact without its payload. Size is the JSON
// length and Stored the bytes on disk after compression.
type Entry struct {
	ID        string    `json:"id"`
	Planet    string    `json:"planet"`
	Feature   string    `json:"feature"`
	Variant   string    `json:"variant,omitempty"`
	Size      int       `json:"size"`
	Stored    int       `json:"stored"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a SQLite-backed artifact cache. A zero TTL keeps entries forever.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens (or creates) the database at path and creates the schema.
// Use ":memory:" for a throwaway cache.
func Open(ctx context.Context, path string, ttl time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open database: %w", err)
	}
	// One connection: SQLite has a single writer, and ":memory:" is per-connection.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("cache: enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: set busy timeout: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("cache: read schema version: %w", err)
	}
	if version < schemaVersion {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS artifacts"); err != nil {
			return fmt.Errorf("cache: drop old schema: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("cache: create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("cache: set schema version: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get decodes the artifact for (planet, feature, variant) into v.
// It reports false when nothing is stored or the entry has expired.
func (s *Store) Get(ctx context.Context, planet, feature, variant string, v any) (bool, error) {
	var (
		payload           []byte
		encoding, created string
		rawSize           int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, encoding, raw_size, created_at FROM artifacts WHERE planet = ? AND feature = ? AND variant = ?`,
		planet, feature, variant).Scan(&payload, &encoding, &rawSize, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get %s/%s: %w", planet, feature, err)
	}
	if s.ttl > 0 {
		t, err := time.Parse(time.RFC3339Nano, created)
		if err == nil && s.now().Sub(t) > s.ttl {
			return false, nil
		}
	}
	raw, err := decodePayload(payload, encoding, rawSize)
	if err != nil {
		return false, fmt.Errorf("cache: decode %s/%s: %w", planet, feature, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("cache: decode %s/%s: %w", planet, feature, err)
	}
	return true, nil
}

// Put stores v as JSON, LZ4-compressed when large, replacing any previous
// artifact with the same key.
func (s *Store) Put(ctx context.Context, planet, feature, variant string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s/%s: %w", planet, feature, err)
	}
	payload, encoding := encodePayload(b)
	const q = `
		INSERT INTO artifacts (id, planet, feature, variant, encoding, raw_size, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(planet, feature, variant) DO UPDATE SET
			encoding = excluded.encoding, raw_size = excluded.raw_size,
			payload = excluded.payload, created_at = excluded.created_at`
	_, err = s.db.ExecContext(ctx, q, uuid.NewString(), planet, feature, variant, encoding, len(b), payload,
		s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("cache: put %s/%s: %w", planet, feature, err)
	}
	return nil
}

// Purge removes every artifact for planet, or all artifacts when planet is empty.
// It returns the number of rows removed.
func (s *Store) Purge(ctx context.Context, planet string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if planet == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM artifacts`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE planet = ?`, planet)
	}
	if err != nil {
		return 0, fmt.Errorf("cache: purge: %w", err)
	}
	return res.RowsAffected()
}

// List returns stored entries, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, planet, feature, variant, raw_size, length(payload), created_at FROM artifacts ORDER BY created_at DESC, planet`)
	if err != nil {
		return nil, fmt.Errorf("cache: list: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Planet, &e.Feature, &e.Variant, &e.Size, &e.Stored, &created); err != nil {
			return nil, fmt.Errorf("cache: scan: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache: iterate: %w", err)
	}
	return out, nil
}
