package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// revisionTime is fixed width so created_at sorts as text.
const revisionTime = "2006-01-02T15:04:05.000000000Z07:00"

// RecordRevision stores r. A missing ID or CreatedAt is filled in.
func (s *Store) RecordRevision(r Revision) (Revision, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO revisions (id, kind, bytes, items, checksum, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.Bytes, r.Items, r.Checksum, r.CreatedAt.UTC().Format(revisionTime),
	)
	if err != nil {
		return Revision{}, err
	}
	return r, nil
}

// ListRevisions returns up to limit revisions, newest first. An empty kind
// lists every kind.
func (s *Store) ListRevisions(kind string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, kind, bytes, items, checksum, created_at
		FROM revisions
		WHERE ? = '' OR kind = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, kind, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRevision returns the newest revision of kind.
func (s *Store) LatestRevision(kind string) (Revision, error) {
	row := s.db.QueryRow(`
		SELECT id, kind, bytes, items, checksum, created_at
		FROM revisions WHERE kind = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, kind)
	r, err := scanRevision(row)
	if err == sql.ErrNoRows {
		return Revision{}, ErrNotFound
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(sc scanner) (Revision, error) {
	var r Revision
	var createdAt string
	if err := sc.Scan(&r.ID, &r.Kind, &r.Bytes, &r.Items, &r.Checksum, &createdAt); err != nil {
		return Revision{}, err
	}
	t, err := time.Parse(revisionTime, createdAt)
	if err != nil {
		return Revision{}, fmt.Errorf("parsing created_at: %w", err)
	}
	r.CreatedAt = t
	return r, nil
}
