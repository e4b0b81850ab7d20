package storage

import (
	"database/sql"
	"time"
)

// VisitsCounter is the counter behind the visit endpoint.
const VisitsCounter = "visits"

// IncrementCounter adds one to the named counter, creating it at 1, and
// returns the new value.
func (s *Store) IncrementCounter(name string) (int64, error) {
	var v int64
	err := s.db.QueryRow(`
		INSERT INTO counters (name, value, updated_at) VALUES (?, 1, ?)
		ON CONFLICT(name) DO UPDATE SET value = value + 1, updated_at = excluded.updated_at
		RETURNING value`,
		name, time.Now().UTC().Format(time.RFC3339),
	).Scan(&v)
	return v, err
}

// GetCounter returns the named counter's value.
func (s *Store) GetCounter(name string) (int64, error) {
	var v int64
	err := s.db.QueryRow(`SELECT value FROM counters WHERE name = ?`, name).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return v, err
}
