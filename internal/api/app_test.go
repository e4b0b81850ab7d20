package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalambet/folio/internal/content"
	"github.com/kalambet/folio/internal/editor"
	"github.com/kalambet/folio/internal/storage"
)

func setupAppHandler(t *testing.T) (http.Handler, *storage.Store, string) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	dir := t.TempDir()
	handler := NewAppHandler(AppDeps{
		Saver:     &Saver{Files: content.FileStore{Dir: dir}, Revisions: store},
		Counter:   store,
		Revisions: store,
	})
	return handler, store, dir
}

func doReq(h http.Handler, method, url, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) editor.Result {
	t.Helper()
	var res editor.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decoding result %q: %v", rr.Body.String(), err)
	}
	return res
}

func TestHealth(t *testing.T) {
	h, _, _ := setupAppHandler(t)
	rr := doReq(h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("health = %d %s", rr.Code, rr.Body.String())
	}
}

func TestSave_WritesIndentedDocument(t *testing.T) {
	h, store, dir := setupAppHandler(t)

	body := `{"type":"works","data":{"projects":[{"id":1,"title":"Site","status":"completed","progress":100,"lastUpdated":"2024-01-01"}]}}`
	rr := doReq(h, http.MethodPost, "/api/save", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	res := decodeResult(t, rr)
	if !res.Success || res.Message != "File works-data.json saved successfully" {
		t.Fatalf("result = %+v", res)
	}

	data, err := os.ReadFile(filepath.Join(dir, "works-data.json"))
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if !strings.HasPrefix(string(data), "{\n  \"projects\": [\n    {") {
		t.Errorf("document not indented by two spaces:\n%s", data)
	}

	revs, err := store.ListRevisions("works", 10)
	if err != nil {
		t.Fatalf("ListRevisions: %v", err)
	}
	if len(revs) != 1 || revs[0].Items != 1 || revs[0].Bytes != len(data) {
		t.Fatalf("revisions = %+v", revs)
	}
}

func TestSave_ChecksumIgnoresFormatting(t *testing.T) {
	a := checksum(json.RawMessage(`{"posts": [ ]}`))
	b := checksum(json.RawMessage(`{"posts":[]}`))
	if a != b {
		t.Errorf("checksum differs for equivalent payloads: %s vs %s", a, b)
	}
}

func TestSave_LastWriteWins(t *testing.T) {
	h, _, dir := setupAppHandler(t)

	for _, title := range []string{"First", "Second"} {
		body := `{"type":"blog","data":{"posts":[{"id":1,"title":"` + title + `","date":"2024-01-01"}]}}`
		if rr := doReq(h, http.MethodPost, "/api/save", body); rr.Code != http.StatusOK {
			t.Fatalf("save %s: %d %s", title, rr.Code, rr.Body.String())
		}
	}

	f, err := os.Open(filepath.Join(dir, "blog-data.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	doc, err := content.Decode(f, content.KindBlog)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Items) != 1 || doc.Items[0].Title != "Second" {
		t.Fatalf("items = %+v", doc.Items)
	}
}

func TestSave_InvalidType(t *testing.T) {
	h, _, dir := setupAppHandler(t)

	rr := doReq(h, http.MethodPost, "/api/save", `{"type":"photos","data":{}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	res := decodeResult(t, rr)
	if res.Success || res.Message != "Invalid data type" {
		t.Fatalf("result = %+v", res)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("data dir should be untouched, has %d entries", len(entries))
	}
}

func TestSave_InvalidPayload(t *testing.T) {
	h, _, _ := setupAppHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"type":"works",`},
		{"missing data", `{"type":"works"}`},
		{"wrong list key", `{"type":"works","data":{"posts":[]}}`},
		{"non numeric id", `{"type":"blog","data":{"posts":[{"id":"abc"}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doReq(h, http.MethodPost, "/api/save", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body = %s", rr.Code, rr.Body.String())
			}
			if decodeResult(t, rr).Success {
				t.Fatal("success = true for invalid payload")
			}
		})
	}
}

func TestSave_WriteFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewAppHandler(AppDeps{
		Saver:   &Saver{Files: content.FileStore{Dir: filepath.Join(blocker, "data")}},
		Counter: failingCounter{},
	})

	rr := doReq(h, http.MethodPost, "/api/save", `{"type":"blog","data":{"posts":[]}}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if decodeResult(t, rr).Success {
		t.Fatal("success = true on write failure")
	}
}

func TestSaverPersist(t *testing.T) {
	dir := t.TempDir()
	s := &Saver{Files: content.FileStore{Dir: dir}}
	doc := content.Document{Kind: content.KindBlog, Items: []content.Item{{ID: 3, Title: "Hi", Date: "2024-05-05"}}}

	var p editor.Persister = s
	res, err := p.Persist(t.Context(), doc)
	if err != nil || !res.Success {
		t.Fatalf("Persist = %+v, %v", res, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "blog-data.json")); err != nil {
		t.Fatalf("document not written: %v", err)
	}
}

func TestVisits_Increments(t *testing.T) {
	h, _, _ := setupAppHandler(t)

	for want := int64(1); want <= 3; want++ {
		rr := doReq(h, http.MethodGet, "/api/visits", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		var body struct {
			Count int64 `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.Count != want {
			t.Fatalf("count = %d, want %d", body.Count, want)
		}
	}
}

type failingCounter struct{}

func (failingCounter) IncrementCounter(string) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestVisits_Failure(t *testing.T) {
	h := NewAppHandler(AppDeps{Saver: &Saver{}, Counter: failingCounter{}})

	rr := doReq(h, http.MethodGet, "/api/visits", "")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"error":"Failed to fetch count"}` {
		t.Fatalf("body = %s", got)
	}
}

func TestRevisions(t *testing.T) {
	h, _, _ := setupAppHandler(t)
	doReq(h, http.MethodPost, "/api/save", `{"type":"blog","data":{"posts":[]}}`)
	doReq(h, http.MethodPost, "/api/save", `{"type":"works","data":{"projects":[]}}`)

	rr := doReq(h, http.MethodGet, "/api/revisions?kind=blog", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var revs []revisionJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &revs); err != nil {
		t.Fatal(err)
	}
	if len(revs) != 1 || revs[0].Kind != "blog" {
		t.Fatalf("revisions = %+v", revs)
	}

	if rr := doReq(h, http.MethodGet, "/api/revisions?limit=0", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", rr.Code)
	}
	if rr := doReq(h, http.MethodGet, "/api/revisions?kind=photos", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d, want 400", rr.Code)
	}
}

func TestSave_DuplicateIDs(t *testing.T) {
	h, _, dir := setupAppHandler(t)

	body := `{"type":"blog","data":{"posts":[{"id":3,"title":"A"},{"id":3,"title":"B"}]}}`
	rr := doReq(h, http.MethodPost, "/api/save", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if res := decodeResult(t, rr); res.Success || !strings.Contains(res.Message, "duplicate id 3") {
		t.Fatalf("result = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, "blog-data.json")); !os.IsNotExist(err) {
		t.Errorf("document should not be written, stat err = %v", err)
	}
}
