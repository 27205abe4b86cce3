package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/action"
)

// StoredAction is one row of the action log: the totally-ordered,
// replayable history of everything ever submitted to the contract,
// accepted or not.
type StoredAction struct {
	Seq      uint64
	Kind     action.Kind
	Identity string
	Payload  []byte
}

// ActionStore persists the action log in SQLite.
type ActionStore struct {
	db *sql.DB
}

// NewActionStore opens (or creates) the log database with WAL mode enabled.
func NewActionStore(dbPath string) (*ActionStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Configure SQLite for durable single-writer logging
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	// id is the action's sequence number; the PRIMARY KEY constraint makes
	// double-writes of a sequence number fail loudly instead of forking
	// history.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS actions (
			id INTEGER PRIMARY KEY,
			kind INTEGER NOT NULL,
			identity TEXT NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create actions table: %w", err)
	}

	return &ActionStore{db: db}, nil
}

// SaveAction appends one action to the log.
func (s *ActionStore) SaveAction(ctx context.Context, sa StoredAction) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO actions (id, kind, identity, payload) VALUES (?, ?, ?, ?)",
		sa.Seq, sa.Kind, sa.Identity, sa.Payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert action %d: %w", sa.Seq, err)
	}
	return nil
}

// GetLastSeq returns the highest sequence number in the log, 0 if empty.
func (s *ActionStore) GetLastSeq(ctx context.Context) (uint64, error) {
	var lastSeq sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(id) FROM actions").Scan(&lastSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to get last seq: %w", err)
	}
	if !lastSeq.Valid {
		return 0, nil // no actions yet
	}
	return uint64(lastSeq.Int64), nil
}

// LoadActions loads the log from fromSeq (inclusive) in sequence order.
func (s *ActionStore) LoadActions(ctx context.Context, fromSeq uint64) ([]StoredAction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, identity, payload FROM actions WHERE id >= ? ORDER BY id ASC",
		fromSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var actions []StoredAction
	for rows.Next() {
		var sa StoredAction
		if err := rows.Scan(&sa.Seq, &sa.Kind, &sa.Identity, &sa.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, sa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return actions, nil
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (s *ActionStore) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table, "" if absent.
func (s *ActionStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (s *ActionStore) Close() error {
	return s.db.Close()
}
