package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// StateRepository stores string values in the client_state table.
//
// It implements session.StateStore.
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new [StateRepository] with the given database connection
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// GetState returns the value stored under key and whether it exists.
func (r *StateRepository) GetState(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM client_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query state %s: %w", key, err)
	}
	return value, true, nil
}

// SetState inserts or replaces the value under key.
func (r *StateRepository) SetState(key, value string) error {
	query := `
		INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to save state %s: %w", key, err)
	}
	return nil
}

// DeleteState removes key. Missing keys are not an error.
func (r *StateRepository) DeleteState(key string) error {
	if _, err := r.db.Exec(`DELETE FROM client_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete state %s: %w", key, err)
	}
	return nil
}

// StateEntry is a row of client_state.
type StateEntry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// List returns every stored entry ordered by key.
func (r *StateRepository) List() ([]StateEntry, error) {
	rows, err := r.db.Query(`SELECT key, value, updated_at FROM client_state ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query state: %w", err)
	}
	defer rows.Close()

	var entries []StateEntry
	for rows.Next() {
		var e StateEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}
