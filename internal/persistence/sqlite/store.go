// Package sqlite persists workspace state to a local SQLite file. The full
// snapshot is written after every successful transaction, keeping the file a
// faithful mirror of the in-memory store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"opschart/internal/store"
	"opschart/pkg/domain"
)

// Store wraps the in-memory store and snapshots its state to a single SQLite
// table as JSON blobs, one bucket per entity collection.
type Store struct {
	*store.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

var _ domain.PersistentStore = (*Store)(nil)

// NewStore opens (or creates) the database at path and loads any previously
// persisted snapshot into a fresh memory store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "opschart.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: store.NewStore(engine), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

type bucket struct {
	name string
	ptr  any
}

func snapshotBuckets(snap *store.Snapshot) []bucket {
	return []bucket{
		{"functions", &snap.Functions},
		{"sub_functions", &snap.SubFunctions},
		{"core_activities", &snap.CoreActivities},
		{"sub_function_activities", &snap.SubFunctionActivities},
		{"workflows", &snap.Workflows},
		{"phases", &snap.Phases},
		{"steps", &snap.Steps},
		{"step_activities", &snap.StepActivities},
		{"people", &snap.People},
		{"roles", &snap.Roles},
		{"software", &snap.Software},
		{"checklist_items", &snap.ChecklistItems},
	}
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payloads := map[string][]byte{}
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		payloads[name] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(payloads) == 0 {
		return nil
	}

	var snap store.Snapshot
	for _, b := range snapshotBuckets(&snap) {
		payload, ok := payloads[b.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(payload, b.ptr); err != nil {
			return fmt.Errorf("decode %s: %w", b.name, err)
		}
	}
	return s.ImportState(snap)
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, b := range snapshotBuckets(&snap) {
		data, err := json.Marshal(b.ptr)
		if err != nil {
			retErr = fmt.Errorf("encode %s: %w", b.name, err)
			return retErr
		}
		if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, b.name, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", b.name, err)
			return retErr
		}
	}
	return tx.Commit()
}

// RunInTransaction applies fn in a memory transaction, then snapshots the
// committed state to SQLite.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// ImportState replaces the memory state and persists the result immediately.
func (s *Store) ImportState(snap store.Snapshot) error {
	s.Store.ImportState(snap)
	return s.persist()
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
