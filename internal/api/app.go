package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/folio/internal/content"
	"github.com/kalambet/folio/internal/editor"
	"github.com/kalambet/folio/internal/storage"
)

const maxSaveBodySize = 10 << 20 // 10MB

// Counter is the visit counter backend.
type Counter interface {
	IncrementCounter(name string) (int64, error)
}

// RevisionLister lists recorded document writes.
type RevisionLister interface {
	ListRevisions(kind string, limit int) ([]storage.Revision, error)
}

type AppDeps struct {
	Saver     *Saver
	Counter   Counter
	Revisions RevisionLister // optional; /api/revisions answers 404 when nil
	Logger    *slog.Logger
}

// NewAppHandler returns the JSON API: persist endpoint, visit counter,
// revision log and health check.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/api/save", handleSave(deps))
	r.Get("/api/visits", handleVisits(deps))
	if deps.Revisions != nil {
		r.Get("/api/revisions", handleRevisions(deps))
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type saveRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func handleSave(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSaveBodySize)
		defer r.Body.Close()

		var req saveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeResult(w, http.StatusBadRequest, editor.Result{Message: fmt.Sprintf("Invalid request body: %v", err)})
			return
		}

		kind, err := content.ParseKind(req.Type)
		if err != nil {
			writeResult(w, http.StatusBadRequest, editor.Result{Message: "Invalid data type"})
			return
		}

		res, err := deps.Saver.Save(kind, req.Data)
		switch {
		case errors.Is(err, content.ErrDecode):
			writeResult(w, http.StatusBadRequest, editor.Result{Message: err.Error()})
		case err != nil:
			writeResult(w, http.StatusInternalServerError, editor.Result{Message: err.Error()})
		default:
			writeResult(w, http.StatusOK, res)
		}
	}
}

func writeResult(w http.ResponseWriter, code int, res editor.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(res)
}

func handleVisits(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		n, err := deps.Counter.IncrementCounter(storage.VisitsCounter)
		if err != nil {
			deps.logger().Error("incrementing visit counter", "error", err)
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]string{"error": "Failed to fetch count"})
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		json.NewEncoder(w).Encode(map[string]int64{"count": n})
	}
}

type revisionJSON struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Bytes     int       `json:"bytes"`
	Items     int       `json:"items"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

func handleRevisions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("kind")
		if kind != "" {
			if _, err := content.ParseKind(kind); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
		}

		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
				return
			}
			limit = min(n, 200)
		}

		revs, err := deps.Revisions.ListRevisions(kind, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list revisions: %v", err)
			return
		}

		out := make([]revisionJSON, len(revs))
		for i, rev := range revs {
			out[i] = revisionJSON(rev)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func (d AppDeps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
