package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists records in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens or creates the archive at path. Use ":memory:" for
// a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A :memory: database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS flows (
			flow_id TEXT PRIMARY KEY,
			sequence INTEGER NOT NULL,
			name TEXT NOT NULL,
			mode TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at TEXT NOT NULL,
			data BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_flows_fingerprint
		ON flows(fingerprint)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Data == nil {
		r.Data = []byte{}
	}

	// A replaced record keeps its sequence.
	_, err := s.db.Exec(`
		INSERT INTO flows (flow_id, sequence, name, mode, fingerprint, created_at, data)
		VALUES (?, COALESCE((SELECT MAX(sequence) FROM flows), 0) + 1, ?, ?, ?, ?, ?)
		ON CONFLICT(flow_id) DO UPDATE SET
			name = excluded.name,
			mode = excluded.mode,
			fingerprint = excluded.fingerprint,
			created_at = excluded.created_at,
			data = excluded.data
	`, r.FlowID, r.Name, r.Mode, r.Fingerprint, r.CreatedAt.UTC().Format(time.RFC3339Nano), r.Data)
	if err != nil {
		return fmt.Errorf("save flow: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(flowID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Record{}, ErrStoreClosed
	}

	r := Record{FlowID: flowID}
	var created string
	err := s.db.QueryRow(`
		SELECT name, mode, fingerprint, created_at, data
		FROM flows WHERE flow_id = ?
	`, flowID).Scan(&r.Name, &r.Mode, &r.Fingerprint, &created, &r.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load flow: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return r, nil
}

// List implements Store.
func (s *SQLiteStore) List() ([]Info, error) {
	return s.query(`
		SELECT flow_id, sequence, name, mode, fingerprint, created_at, LENGTH(data)
		FROM flows ORDER BY sequence
	`)
}

// FindByFingerprint implements Store.
func (s *SQLiteStore) FindByFingerprint(fingerprint string) ([]Info, error) {
	return s.query(`
		SELECT flow_id, sequence, name, mode, fingerprint, created_at, LENGTH(data)
		FROM flows WHERE fingerprint = ? ORDER BY sequence
	`, fingerprint)
}

func (s *SQLiteStore) query(q string, args ...any) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		var info Info
		var created string
		if err := rows.Scan(&info.FlowID, &info.Sequence, &info.Name, &info.Mode, &info.Fingerprint, &created, &info.Size); err != nil {
			return nil, fmt.Errorf("scan flow info: %w", err)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flows: %w", err)
	}
	return infos, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.db.Exec(`DELETE FROM flows WHERE flow_id = ?`, flowID); err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
