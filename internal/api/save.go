package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kalambet/folio/internal/content"
	"github.com/kalambet/folio/internal/editor"
	"github.com/kalambet/folio/internal/storage"
)

// RevisionRecorder records document writes.
type RevisionRecorder interface {
	RecordRevision(r storage.Revision) (storage.Revision, error)
}

// Saver validates and writes whole content documents. It backs both the
// HTTP persist endpoint and in-process editor saves.
type Saver struct {
	Files     content.FileStore
	Revisions RevisionRecorder // optional
	Logger    *slog.Logger
}

// Save validates payload as kind's document and replaces the file on disk.
// Payloads that do not decode yield an error wrapping content.ErrDecode.
func (s *Saver) Save(kind content.Kind, payload json.RawMessage) (editor.Result, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return editor.Result{}, fmt.Errorf("%w: missing data", content.ErrDecode)
	}
	items, err := content.ItemsFromPayload(kind, payload)
	if err != nil {
		return editor.Result{}, err
	}

	n, err := s.Files.Save(kind, payload)
	if err != nil {
		s.logger().Error("saving document", "kind", kind, "error", err)
		return editor.Result{}, err
	}

	if s.Revisions != nil {
		rev, err := s.Revisions.RecordRevision(storage.Revision{
			Kind:     string(kind),
			Bytes:    n,
			Items:    len(items),
			Checksum: checksum(payload),
		})
		if err != nil {
			s.logger().Warn("recording revision", "kind", kind, "error", err)
		} else {
			s.logger().Info("document saved", "kind", kind, "items", len(items), "bytes", n, "revision", rev.ID)
		}
	}

	return editor.Result{
		Success: true,
		Message: fmt.Sprintf("File %s saved successfully", kind.FileName()),
	}, nil
}

// Persist implements editor.Persister without an HTTP round trip.
func (s *Saver) Persist(_ context.Context, doc content.Document) (editor.Result, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return editor.Result{}, fmt.Errorf("encoding %s document: %w", doc.Kind, err)
	}
	res, err := s.Save(doc.Kind, payload)
	if err != nil {
		return editor.Result{Success: false, Message: err.Error()}, nil
	}
	return res, nil
}

func (s *Saver) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// checksum hashes the compacted payload so formatting does not change it.
func checksum(payload json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		buf.Reset()
		buf.Write(payload)
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}
