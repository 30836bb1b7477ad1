// Package store provides SQLite-backed persistence for world snapshots
// and the event history.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"marchland/internal/sim"
)

// ErrNoSnapshot means the database holds no saved world yet.
var ErrNoSnapshot = errors.New("no snapshot in store")

// Store wraps a SQLite connection. One database holds one world: the
// latest snapshot plus the append-only event history.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		save_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		state TEXT NOT NULL,
		terrain BLOB NOT NULL,
		saved_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// SaveSnapshot replaces the stored world with this snapshot and appends
// any events newer than the last save to the history. Each save gets a
// fresh save ID.
func (s *Store) SaveSnapshot(snap *sim.Snapshot) error {
	// Terrain bytes go in their own column; everything else is one JSON
	// document.
	st := *snap
	st.TerrainTypes = nil
	state, err := json.Marshal(&st)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM snapshot"); err != nil {
		return err
	}
	saveID := uuid.NewString()
	savedAt := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.Exec(
		"INSERT INTO snapshot (id, save_id, tick, state, terrain, saved_at) VALUES (1, ?, ?, ?, ?, ?)",
		saveID, snap.Tick, string(state), snap.TerrainTypes, savedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if err := appendEvents(tx, snap.Events); err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	if err := setMeta(tx, "save_id", saveID); err != nil {
		return err
	}
	if err := setMeta(tx, "last_tick", strconv.FormatUint(snap.Tick, 10)); err != nil {
		return err
	}
	if err := setMeta(tx, "seed", strconv.FormatInt(snap.EffectiveSeed, 10)); err != nil {
		return err
	}
	if err := setMeta(tx, "saved_at", savedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("snapshot saved",
		"save_id", saveID, "tick", snap.Tick,
		"settlements", len(snap.Settlements), "caravans", len(snap.Caravans))
	return nil
}

// appendEvents inserts only events past the last saved tick, so repeated
// saves of an overlapping in-memory ring do not duplicate history.
func appendEvents(tx *sqlx.Tx, events []sim.Event) error {
	var through uint64
	var raw string
	err := tx.Get(&raw, "SELECT value FROM world_meta WHERE key = 'events_through'")
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		through, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("bad events_through marker %q: %w", raw, err)
		}
	}

	stmt, err := tx.Preparex(
		"INSERT INTO events (tick, category, description) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	max := through
	for _, e := range events {
		if e.Tick <= through {
			continue
		}
		if _, err := stmt.Exec(e.Tick, e.Category, e.Description); err != nil {
			return err
		}
		if e.Tick > max {
			max = e.Tick
		}
	}
	return setMeta(tx, "events_through", strconv.FormatUint(max, 10))
}

// LoadSnapshot returns the stored world, or ErrNoSnapshot if the
// database has never been saved to.
func (s *Store) LoadSnapshot() (*sim.Snapshot, error) {
	var row struct {
		State   string `db:"state"`
		Terrain []byte `db:"terrain"`
	}
	err := s.conn.Get(&row, "SELECT state, terrain FROM snapshot WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap sim.Snapshot
	if err := json.Unmarshal([]byte(row.State), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	snap.TerrainTypes = row.Terrain
	return &snap, nil
}

// RecentEvents returns up to limit events from the history, newest first.
func (s *Store) RecentEvents(limit int) ([]sim.Event, error) {
	var events []sim.Event
	err := s.conn.Select(&events,
		"SELECT tick, category, description FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in world metadata.
func (s *Store) SaveMeta(key, value string) error {
	_, err := s.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// Meta returns all world metadata.
func (s *Store) Meta() (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := s.conn.Select(&rows, "SELECT key, value FROM world_meta ORDER BY key"); err != nil {
		return nil, err
	}
	meta := make(map[string]string, len(rows))
	for _, r := range rows {
		meta[r.Key] = r.Value
	}
	return meta, nil
}

func setMeta(tx *sqlx.Tx, key, value string) error {
	_, err := tx.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}
