package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore writes content documents into a data directory. Writes replace
// the whole document; the last write wins.
type FileStore struct {
	Dir string
}

// Path returns the document path for kind.
func (s FileStore) Path(kind Kind) string {
	return filepath.Join(s.Dir, kind.FileName())
}

// Save writes payload, re-indented by two spaces, as kind's document. The
// directory is created when missing and the file is replaced atomically.
// It returns the number of bytes written.
func (s FileStore) Save(kind Kind, payload json.RawMessage) (int, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		return 0, fmt.Errorf("formatting %s document: %w", kind, err)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating data directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+kind.FileName()+".*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing %s document: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing %s document: %w", kind, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, fmt.Errorf("setting %s document mode: %w", kind, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(kind)); err != nil {
		return 0, fmt.Errorf("replacing %s document: %w", kind, err)
	}
	return buf.Len(), nil
}
