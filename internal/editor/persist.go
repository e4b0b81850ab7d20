package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kalambet/folio/internal/content"
)

// ErrRejected is returned when the save endpoint answers success=false.
var ErrRejected = errors.New("save rejected")

// Result is the save endpoint's reply.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SaveRequest is the body of POST /api/save.
type SaveRequest struct {
	Type content.Kind     `json:"type"`
	Data content.Document `json:"data"`
}

// Persister writes a whole document somewhere.
type Persister interface {
	Persist(ctx context.Context, doc content.Document) (Result, error)
}

// HTTPPersister posts documents to a save endpoint.
type HTTPPersister struct {
	URL    string
	Client *http.Client
}

func (p HTTPPersister) Persist(ctx context.Context, doc content.Document) (Result, error) {
	body, err := json.Marshal(SaveRequest{Type: doc.Kind, Data: doc})
	if err != nil {
		return Result{}, fmt.Errorf("encoding save request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("posting %s document: %w", doc.Kind, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("reading save response: %w", err)
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		if resp.StatusCode >= 400 {
			return Result{}, fmt.Errorf("save endpoint returned status %d", resp.StatusCode)
		}
		return Result{}, fmt.Errorf("decoding save response: %w", err)
	}
	if resp.StatusCode >= 400 && res.Success {
		return Result{}, fmt.Errorf("save endpoint returned status %d", resp.StatusCode)
	}
	return res, nil
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, doc content.Document) (Result, error)

func (f PersisterFunc) Persist(ctx context.Context, doc content.Document) (Result, error) {
	return f(ctx, doc)
}
