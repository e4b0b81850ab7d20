package editor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/folio/internal/content"
)

// --- Mock clock ---

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var today = time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC)

func newTestSession() *Session {
	return NewSessionWithClock(fixedClock{now: today})
}

// --- Mock loader ---

type mockLoader struct {
	mu    sync.Mutex
	docs  map[content.Kind][]content.Item
	errs  map[content.Kind]error
	calls int
}

func (m *mockLoader) Load(_ context.Context, kind content.Kind) ([]content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.errs[kind]; err != nil {
		return nil, err
	}
	return m.docs[kind], nil
}

func worksItems(ids ...int) []content.Item {
	var out []content.Item
	for _, id := range ids {
		out = append(out, content.Item{Kind: content.KindWorks, ID: id, Title: "w", Status: "completed", Tags: []string{}})
	}
	return out
}

func TestCreateOnEmptyAssignsOne(t *testing.T) {
	s := newTestSession()
	it := s.Create()
	if it.ID != 1 {
		t.Errorf("ID = %d, want 1", it.ID)
	}
	if it.Title != "New Project" || it.Status != "planning" || it.Progress != 0 {
		t.Errorf("unexpected defaults: %+v", it)
	}
	if it.LastUpdated != "2024-05-17" {
		t.Errorf("LastUpdated = %q, want today", it.LastUpdated)
	}
	sel, ok := s.Selected()
	if !ok || sel.ID != 1 {
		t.Errorf("Selected = %d, %v; want 1, true", sel.ID, ok)
	}
}

func TestCreateAfterSevenAssignsEight(t *testing.T) {
	s := newTestSession()
	l := &mockLoader{docs: map[content.Kind][]content.Item{content.KindWorks: worksItems(3, 7, 2)}}
	if err := s.Load(context.Background(), l); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.Create().ID; got != 8 {
		t.Errorf("ID = %d, want 8", got)
	}
}

func TestCreateBlogDefaults(t *testing.T) {
	s := newTestSession()
	s.SwitchKind(content.KindBlog)
	sel, ok := s.Selected()
	if !ok {
		t.Fatal("switching to an empty kind should create and select an item")
	}
	if sel.Title != "New Blog Post" || sel.Date != "2024-05-17" || sel.Kind != content.KindBlog {
		t.Errorf("unexpected blog defaults: %+v", sel)
	}
}

func TestSelectUnknownKeepsSelection(t *testing.T) {
	s := newTestSession()
	s.Load(context.Background(), &mockLoader{docs: map[content.Kind][]content.Item{content.KindWorks: worksItems(1, 2)}})
	if !s.Select(2) {
		t.Fatal("Select(2) = false")
	}
	if s.Select(99) {
		t.Error("Select(99) = true, want false")
	}
	sel, _ := s.Selected()
	if sel.ID != 2 {
		t.Errorf("selection = %d, want 2", sel.ID)
	}
}

func TestUpdateRebuildsItem(t *testing.T) {
	s := newTestSession()
	s.Load(context.Background(), &mockLoader{docs: map[content.Kind][]content.Item{content.KindWorks: worksItems(4)}})

	form := ParseForm(url.Values{
		"title":            {"Arm"},
		"tags":             {" Blender, ,3D ,"},
		"status":           {"in-progress"},
		"progress":         {"140"},
		"lastUpdated":      {"2024-05-01"},
		"task-0-name":      {"Model"},
		"task-0-completed": {"on"},
		"task-1-name":      {""},
		"link-0-label":     {"Shot"},
		"link-0-url":       {"img/a.png"},
		"link-0-type":      {"image"},
		"link-1-url":       {"https://x.com/u/status/5"},
		"link-2-label":     {""},
		"link-2-url":       {""},
		"id":               {"77"},
	})
	it, err := s.Update(form)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if it.ID != 4 {
		t.Errorf("ID = %d, want 4 (form id is ignored)", it.ID)
	}
	if !reflect.DeepEqual(it.Tags, []string{"Blender", "3D"}) {
		t.Errorf("Tags = %q", it.Tags)
	}
	if it.Progress != 100 {
		t.Errorf("Progress = %d, want clamped 100", it.Progress)
	}
	if len(it.Tasks) != 1 || it.Tasks[0] != (content.Task{Name: "Model", Completed: true}) {
		t.Errorf("Tasks = %+v", it.Tasks)
	}
	if len(it.Links) != 2 {
		t.Fatalf("Links = %+v", it.Links)
	}
	if it.Links[0].Kind != content.LinkImage || it.Links[1].Kind != content.LinkEmbed {
		t.Errorf("link kinds = %v, %v", it.Links[0].Kind, it.Links[1].Kind)
	}

	doc := s.Document()
	if doc.Items[0].Title != "Arm" {
		t.Errorf("working copy not updated: %+v", doc.Items[0])
	}
}

func TestUpdateWithoutSelection(t *testing.T) {
	s := &Session{
		clock: fixedClock{now: today},
		items: map[content.Kind][]content.Item{content.KindWorks: {}, content.KindBlog: {}},
		kind:  content.KindWorks,
	}
	if _, err := s.Update(FormState{Title: "x"}); !errors.Is(err, ErrNoSelection) {
		t.Errorf("err = %v, want ErrNoSelection", err)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	s := newTestSession()
	s.Create()
	if err := s.Delete(false); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("err = %v, want ErrNotConfirmed", err)
	}
	if n := len(s.Document().Items); n != 1 {
		t.Errorf("len(items) = %d, want 1", n)
	}
}

func TestDeleteOnlyItemCreatesFresh(t *testing.T) {
	s := newTestSession()
	s.Load(context.Background(), &mockLoader{docs: map[content.Kind][]content.Item{content.KindWorks: worksItems(5)}})
	if err := s.Delete(true); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	items := s.Document().Items
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	sel, ok := s.Selected()
	if !ok || sel.ID != items[0].ID {
		t.Errorf("fresh item not selected: %+v", sel)
	}
	if items[0].Title != "New Project" {
		t.Errorf("fresh item = %+v", items[0])
	}
}

func TestDeleteSelectsFirstRemaining(t *testing.T) {
	s := newTestSession()
	s.Load(context.Background(), &mockLoader{docs: map[content.Kind][]content.Item{content.KindWorks: worksItems(1, 2, 3)}})
	s.Select(1)
	if err := s.Delete(true); err != nil {
		t.Fatal(err)
	}
	sel, _ := s.Selected()
	if sel.ID != 2 {
		t.Errorf("selected = %d, want 2", sel.ID)
	}
	if n := len(s.Document().Items); n != 2 {
		t.Errorf("len(items) = %d, want 2", n)
	}
}

func TestKindsAreIndependent(t *testing.T) {
	s := newTestSession()
	s.Create()
	s.Create()
	s.SwitchKind(content.KindBlog)
	if id, _ := s.Selected(); id.ID != 1 {
		t.Errorf("blog id = %d, want 1 (separate namespace)", id.ID)
	}
	s.SwitchKind(content.KindWorks)
	if n := len(s.Document().Items); n != 2 {
		t.Errorf("works items = %d, want 2", n)
	}
}

func TestExportJSONRoundTrip(t *testing.T) {
	s := newTestSession()
	s.Create()
	s.Update(ParseForm(url.Values{
		"title":       {"One"},
		"tags":        {"a,b"},
		"status":      {"completed"},
		"progress":    {"100"},
		"task-0-name": {"t"},
		"link-0-url":  {"https://example.com"},
	}))
	s.Create()

	out, err := s.ExportJSON()
	if err != nil {
		t.Fatal(err)
	}
	doc, err := content.DecodeBytes([]byte(out), content.KindWorks)
	if err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if !reflect.DeepEqual(doc.Items, s.Document().Items) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", doc.Items, s.Document().Items)
	}
}

func TestLoadMissingDocumentsStartEmpty(t *testing.T) {
	s := newTestSession()
	l := &mockLoader{errs: map[content.Kind]error{
		content.KindWorks: content.ErrNotExist,
		content.KindBlog:  content.ErrNotExist,
	}}
	if err := s.Load(context.Background(), l); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if l.calls != 2 {
		t.Errorf("loader calls = %d, want 2", l.calls)
	}
	if n := len(s.Document().Items); n != 1 {
		t.Errorf("len(items) = %d, want 1 fresh item", n)
	}
}

func TestLoadFailureKeepsWorkingCopy(t *testing.T) {
	s := newTestSession()
	s.Create()
	l := &mockLoader{
		docs: map[content.Kind][]content.Item{content.KindWorks: worksItems(1, 2, 3)},
		errs: map[content.Kind]error{content.KindBlog: content.ErrDecode},
	}
	if err := s.Load(context.Background(), l); !errors.Is(err, content.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
	if n := len(s.Document().Items); n != 1 {
		t.Errorf("len(items) = %d, want working copy untouched", n)
	}
}

func TestPersistFailureKeepsWorkingCopy(t *testing.T) {
	s := newTestSession()
	s.Create()
	before := s.Document()

	_, err := s.Persist(context.Background(), PersisterFunc(func(context.Context, content.Document) (Result, error) {
		return Result{}, errors.New("connection refused")
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	_, err = s.Persist(context.Background(), PersisterFunc(func(context.Context, content.Document) (Result, error) {
		return Result{Success: false, Message: "disk full"}, nil
	}))
	if !errors.Is(err, ErrRejected) {
		t.Errorf("err = %v, want ErrRejected", err)
	}
	if !reflect.DeepEqual(before, s.Document()) {
		t.Error("working copy changed after failed persist")
	}
}

func TestPersistSendsActiveKind(t *testing.T) {
	var got SaveRequest
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		json.Unmarshal(raw["type"], &got.Type)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"File blog-data.json saved successfully"}`))
	}))
	defer srv.Close()

	s := newTestSession()
	s.SwitchKind(content.KindBlog)
	s.Create()

	res, err := s.Persist(context.Background(), HTTPPersister{URL: srv.URL})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if !res.Success {
		t.Errorf("Success = false")
	}
	if got.Type != content.KindBlog {
		t.Errorf("type = %q, want blog", got.Type)
	}
	doc, err := content.DecodeBytes(raw["data"], content.KindBlog)
	if err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if len(doc.Items) != 2 {
		t.Errorf("sent %d posts, want the whole working copy (2)", len(doc.Items))
	}
}

func TestHTTPPersisterServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"message":"EACCES"}`))
	}))
	defer srv.Close()

	res, err := HTTPPersister{URL: srv.URL}.Persist(context.Background(), content.Document{Kind: content.KindWorks})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if res.Success || res.Message != "EACCES" {
		t.Errorf("res = %+v", res)
	}
}

func TestSnapshot(t *testing.T) {
	s := newTestSession()
	s.Create()
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Kind != content.KindWorks || !snap.HasSelection || len(snap.Items) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.JSON == "" {
		t.Error("snapshot JSON is empty")
	}
}

func TestSnapshotConcurrent(t *testing.T) {
	s := newTestSession()
	items := worksItems(1)
	items[0].Links = []content.Link{
		{Label: "Tweet", URL: "https://x.com/u/status/1", Type: "link"},
		{Label: "Shot", URL: "img/shot.png", Type: "image"},
	}
	l := &mockLoader{docs: map[content.Kind][]content.Item{content.KindWorks: items}}
	if err := s.Load(context.Background(), l); err != nil {
		t.Fatalf("Load: %v", err)
	}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if _, err := s.Snapshot(); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSnapshotFormFillsBlankDates(t *testing.T) {
	s := newTestSession()
	l := &mockLoader{docs: map[content.Kind][]content.Item{
		content.KindWorks: worksItems(1),
		content.KindBlog:  {{Kind: content.KindBlog, ID: 1, Title: "Undated", Tags: []string{}}},
	}}
	if err := s.Load(context.Background(), l); err != nil {
		t.Fatalf("Load: %v", err)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Form.LastUpdated != "2024-05-17" {
		t.Errorf("works form lastUpdated = %q, want 2024-05-17", snap.Form.LastUpdated)
	}
	if snap.Selected.LastUpdated != "" {
		t.Errorf("selection itself should stay unchanged, got %q", snap.Selected.LastUpdated)
	}

	s.SwitchKind(content.KindBlog)
	snap, err = s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Form.Date != "2024-05-17" {
		t.Errorf("blog form date = %q, want 2024-05-17", snap.Form.Date)
	}
}
