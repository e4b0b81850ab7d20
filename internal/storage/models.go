package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Revision records one write of a content document.
type Revision struct {
	ID        string
	Kind      string // "works" or "blog"
	Bytes     int
	Items     int
	Checksum  string // hex sha256 of the compacted payload
	CreatedAt time.Time
}
