// Package statedb stores scrub history in SQLite. Only metadata is kept:
// counts, types and outcomes. Secret values and scrubbed text never reach the
// database.
package statedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lyndonlyu/secretshield/internal/migration"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("statedb: not found")

var schema = migration.NewRegistry().
	MustAdd(1, "state, scrubs and type_counts", `
		CREATE TABLE IF NOT EXISTS state (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS scrubs (
			id          TEXT PRIMARY KEY,
			action      TEXT NOT NULL,
			source      TEXT NOT NULL DEFAULT '',
			outcome     TEXT NOT NULL,
			redactions  INTEGER NOT NULL DEFAULT 0,
			types       TEXT NOT NULL DEFAULT '[]',
			style       TEXT NOT NULL DEFAULT '',
			sensitivity TEXT NOT NULL DEFAULT '',
			bytes       INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS scrubs_created_at ON scrubs (created_at);
		CREATE TABLE IF NOT EXISTS type_counts (
			type  TEXT PRIMARY KEY,
			count INTEGER NOT NULL DEFAULT 0
		);`)

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type DB struct {
	db   *sql.DB
	path string
	w    *writer
}

type StateEntry struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updated_at"` // RFC3339
}

// ScrubRecord describes one scrub, copy or guard rewrite. Types holds the
// type of every redaction, repeats included, so per-type totals add up.
type ScrubRecord struct {
	ID          string   `json:"id"`
	Action      string   `json:"action"`
	Source      string   `json:"source"`
	Outcome     string   `json:"outcome"`
	Redactions  int      `json:"redactions"`
	Types       []string `json:"types"`
	Style       string   `json:"style"`
	Sensitivity string   `json:"sensitivity"`
	Bytes       int      `json:"bytes"`
	CreatedAt   string   `json:"created_at"`
}

// TypeCount is the running total of redactions for one secret type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Stats summarises the history table.
type Stats struct {
	Scrubs     int         `json:"scrubs"`
	Redacted   int         `json:"redacted"`
	Cancelled  int         `json:"cancelled"`
	Redactions int         `json:"redactions"`
	ByType     []TypeCount `json:"by_type"`
}

// Open creates or opens a SQLite database at path with WAL mode,
// busy timeout of 5 seconds, and foreign keys enabled. It brings the
// schema up to date and starts the write queue.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("statedb: open: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("statedb: ping: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("statedb: %s: %w", p, err)
		}
	}

	if _, err := schema.Migrate(db, path); err != nil {
		db.Close()
		return nil, fmt.Errorf("statedb: migrate: %w", err)
	}

	return &DB{db: db, path: path, w: newWriter(db)}, nil
}

// SchemaVersion returns the applied schema version.
func (d *DB) SchemaVersion() (int, error) {
	return migration.GetVersion(d.db)
}

// Close drains pending writes and closes the database.
func (d *DB) Close() error {
	d.w.close()
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// SetState upserts a key-value state entry. The updated_at timestamp
// is set to the current UTC time in RFC3339 format.
func (d *DB) SetState(key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := d.db.Exec(
		`INSERT OR REPLACE INTO state (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("statedb: set state: %w", err)
	}
	return nil
}

// GetState retrieves a state entry by key. Returns ErrNotFound if the
// key does not exist.
func (d *DB) GetState(key string) (StateEntry, error) {
	var e StateEntry
	err := d.db.QueryRow(
		`SELECT key, value, updated_at FROM state WHERE key = ?`, key,
	).Scan(&e.Key, &e.Value, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StateEntry{}, ErrNotFound
		}
		return StateEntry{}, fmt.Errorf("statedb: get state: %w", err)
	}
	return e, nil
}

// DeleteState removes a state entry by key.
func (d *DB) DeleteState(key string) error {
	_, err := d.db.Exec(`DELETE FROM state WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("statedb: delete state: %w", err)
	}
	return nil
}

// ListState returns all state entries sorted by key.
func (d *DB) ListState() ([]StateEntry, error) {
	rows, err := d.db.Query(`SELECT key, value, updated_at FROM state ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("statedb: list state: %w", err)
	}
	defer rows.Close()

	var entries []StateEntry
	for rows.Next() {
		var e StateEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("statedb: scan state: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("statedb: rows state: %w", err)
	}
	return entries, nil
}

// RecordScrub queues r for insertion and waits until it is committed
// together with the per-type counters. An empty ID or CreatedAt is filled in.
// Concurrent callers are serialised through a single writer.
func (d *DB) RecordScrub(ctx context.Context, r ScrubRecord) (ScrubRecord, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt == "" {
		r.CreatedAt = time.Now().UTC().Format(timeLayout)
	}
	if r.Types == nil {
		r.Types = []string{}
	}
	if err := d.w.submit(ctx, r); err != nil {
		return ScrubRecord{}, fmt.Errorf("statedb: record scrub: %w", err)
	}
	return r, nil
}

const scrubColumns = `id, action, source, outcome, redactions, types, style, sensitivity, bytes, created_at`

func scanScrub(row interface{ Scan(...any) error }) (ScrubRecord, error) {
	var r ScrubRecord
	var types string
	if err := row.Scan(&r.ID, &r.Action, &r.Source, &r.Outcome, &r.Redactions,
		&types, &r.Style, &r.Sensitivity, &r.Bytes, &r.CreatedAt); err != nil {
		return ScrubRecord{}, err
	}
	if err := json.Unmarshal([]byte(types), &r.Types); err != nil {
		return ScrubRecord{}, fmt.Errorf("statedb: decode types: %w", err)
	}
	return r, nil
}

// GetScrub retrieves a history record by ID. Returns ErrNotFound if the ID
// does not exist.
func (d *DB) GetScrub(id string) (ScrubRecord, error) {
	r, err := scanScrub(d.db.QueryRow(`SELECT `+scrubColumns+` FROM scrubs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ScrubRecord{}, ErrNotFound
		}
		return ScrubRecord{}, fmt.Errorf("statedb: get scrub: %w", err)
	}
	return r, nil
}

// ListScrubs returns the most recent history records ordered by created_at
// descending. If limit is 0, all records are returned.
func (d *DB) ListScrubs(limit int) ([]ScrubRecord, error) {
	query := `SELECT ` + scrubColumns + ` FROM scrubs ORDER BY created_at DESC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = d.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = d.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("statedb: list scrubs: %w", err)
	}
	defer rows.Close()

	var records []ScrubRecord
	for rows.Next() {
		r, err := scanScrub(rows)
		if err != nil {
			return nil, fmt.Errorf("statedb: scan scrub: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("statedb: rows scrubs: %w", err)
	}
	return records, nil
}

// TypeCounts returns redaction totals per secret type, largest first.
func (d *DB) TypeCounts() ([]TypeCount, error) {
	rows, err := d.db.Query(`SELECT type, count FROM type_counts ORDER BY count DESC, type`)
	if err != nil {
		return nil, fmt.Errorf("statedb: type counts: %w", err)
	}
	defer rows.Close()

	var counts []TypeCount
	for rows.Next() {
		var c TypeCount
		if err := rows.Scan(&c.Type, &c.Count); err != nil {
			return nil, fmt.Errorf("statedb: scan type count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Stats aggregates the history. A record counts as cancelled when its
// outcome is "cancelled".
func (d *DB) Stats() (Stats, error) {
	var s Stats
	err := d.db.QueryRow(`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN redactions > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'cancelled' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(redactions), 0)
		FROM scrubs`,
	).Scan(&s.Scrubs, &s.Redacted, &s.Cancelled, &s.Redactions)
	if err != nil {
		return Stats{}, fmt.Errorf("statedb: stats: %w", err)
	}
	s.ByType, err = d.TypeCounts()
	if err != nil {
		return Stats{}, err
	}
	return s, nil
}

// CountBefore returns how many history rows are older than cutoff.
func (d *DB) CountBefore(cutoff time.Time) (int64, error) {
	var n int64
	err := d.db.QueryRow(`SELECT COUNT(*) FROM scrubs WHERE created_at < ?`, cutoff.UTC().Format(timeLayout)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("statedb: count: %w", err)
	}
	return n, nil
}

// PruneBefore deletes history older than cutoff and returns the number of
// rows removed. Per-type counters are lifetime totals and are not reduced.
func (d *DB) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := d.db.Exec(`DELETE FROM scrubs WHERE created_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("statedb: prune: %w", err)
	}
	return res.RowsAffected()
}
