package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/folio/internal/content"
	"github.com/kalambet/folio/internal/editor"
)

type mockLoader struct {
	mu    sync.Mutex
	items map[content.Kind][]content.Item
	err   error
	calls int
}

func (m *mockLoader) Load(_ context.Context, kind content.Kind) ([]content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	items, ok := m.items[kind]
	if !ok {
		return nil, content.ErrNotExist
	}
	out := make([]content.Item, len(items))
	copy(out, items)
	return out, nil
}

type countingCounter struct{ n int64 }

func (c *countingCounter) IncrementCounter(string) (int64, error) {
	c.n++
	return c.n, nil
}

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }

func fixtures() map[content.Kind][]content.Item {
	works := []content.Item{
		{Kind: content.KindWorks, ID: 1, Title: "Old Site", Tags: []string{"Web"}, Status: "completed", Progress: 100, LastUpdated: "2023-01-01"},
		{Kind: content.KindWorks, ID: 2, Title: "<b>Render</b>", Tags: []string{"3D", "Blender"}, Status: "in-progress", Progress: 40, LastUpdated: "2024-06-01",
			Summary: "A scene"},
		{Kind: content.KindWorks, ID: 3, Title: "Idea", Status: "planning", LastUpdated: "2024-02-01"},
	}
	posts := []content.Item{
		{Kind: content.KindBlog, ID: 1, Title: "First", Date: "2024-01-02", Tags: []string{"Notes"}, Summary: "Hello", Content: "Body text"},
		{Kind: content.KindBlog, ID: 2, Title: "Second", Date: "2024-03-04", Content: "More"},
	}
	for i := range works {
		works[i].Normalize()
	}
	for i := range posts {
		posts[i].Normalize()
	}
	return map[content.Kind][]content.Item{content.KindWorks: works, content.KindBlog: posts}
}

func newTestHandler(t *testing.T, loader *mockLoader, mutate ...func(*Deps)) http.Handler {
	t.Helper()
	deps := Deps{Content: loader, Counter: &countingCounter{}}
	for _, m := range mutate {
		m(&deps)
	}
	h, err := NewHandler(deps)
	require.NoError(t, err)
	return h
}

func get(h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func post(h http.Handler, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHomeShowsVisits(t *testing.T) {
	h := newTestHandler(t, &mockLoader{items: fixtures()})

	get(h, "/")
	rr := get(h, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `<span id="visit-count">2</span>`)
	assert.Contains(t, rr.Body.String(), "<title>Portfolio of Butter</title>")
}

type failingCounter struct{}

func (failingCounter) IncrementCounter(string) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestHomeVisitsFallBackToCookie(t *testing.T) {
	h := newTestHandler(t, &mockLoader{items: fixtures()}, func(d *Deps) { d.Counter = failingCounter{} })

	rr := get(h, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `<span id="visit-count">4097</span>`)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "1", cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Contains(t, rr.Body.String(), `<span id="visit-count">4098</span>`)
}

func TestWorksListDefaultOrder(t *testing.T) {
	h := newTestHandler(t, &mockLoader{items: fixtures()})

	rr := get(h, "/works")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()

	i2 := strings.Index(body, `id="work-2"`)
	i3 := strings.Index(body, `id="work-3"`)
	i1 := strings.Index(body, `id="work-1"`)
	require.True(t, i2 >= 0 && i3 >= 0 && i1 >= 0, body)
	assert.True(t, i2 < i3 && i3 < i1, "expected newest first")

	assert.Contains(t, body, "&lt;b&gt;Render&lt;/b&gt;")
	assert.NotContains(t, body, "<b>Render</b>")
	assert.Contains(t, body, "<title>Works - Portfolio of Butter</title>")
	assert.Contains(t, body, `class="filter-btn active"`)
}

func TestWorksFilterAndSort(t *testing.T) {
	h := newTestHandler(t, &mockLoader{items: fixtures()})

	body := get(h, "/works?filter=completed").Body.String()
	assert.Contains(t, body, `id="work-1"`)
	assert.NotContains(t, body, `id="work-2"`)

	body = get(h, "/works?filter=paused").Body.String()
	assert.Contains(t, body, "No projects found for this category.")

	body = get(h, "/works?sort=progress-asc").Body.String()
	assert.Less(t, strings.Index(body, `id="work-3"`), strings.Index(body, `id="work-1"`))

	// unknown sort keys fall back to the default order
	body = get(h, "/works?sort=bogus").Body.String()
	assert.Less(t, strings.Index(body, `id="work-2"`), strings.Index(body, `id="work-1"`))
}

func TestWorksAccordion(t *testing.T) {
	h := newTestHandler(t, &mockLoader{items: fixtures()})

	body := get(h, "/works?open=2").Body.String()
	assert.Contains(t, body, `class="work-item active"`)
	// the open card's header closes it; others open themselves
	assert.Contains(t, body, `href="/works#work-2"`)
	assert.Contains(t, body, `href="/works?open=1#work-1"`)
}

func TestWorksUnknownIDRedirects(t *testing.T) {
	h := newTestHandler(t, &mockLoader{items: fixtures()})

	for _, target := range []string{"/works?id=99&filter=completed", "/works?id=abc&filter=completed", "/works?id=1&id=2&filter=completed"} {
		rr := get(h, target)
		require.Equal(t, http.StatusFound, rr.Code, target)
		assert.Equal(t, "/works?filter=completed", rr.Header().Get("Location"), target)
	}
}

func TestWorksDetail(t *testing.T) {
	h := newTestHandler(t, &mockLoader{items: fixtures()})

	rr := get(h, "/works?id=2")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<title>&lt;b&gt;Render&lt;/b&gt; | Butter&#39;s Works</title>")
	assert.Contains(t, body, `<meta name="description" content="A scene">`)
	assert.Contains(t, body, `content="Butter, Portfolio, Works, 3D, Blender"`)
	assert.Contains(t, body, `class="work-item active"`)
	assert.Contains(t, body, `id="back-to-list"`)
	assert.NotContains(t, body, `id="work-1"`)
}

func TestWorksLoadFailure(t *testing.T) {
	h := newTestHandler(t, &mockLoader{err: errors.New("connection refused")})

	rr := get(h, "/works")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Failed to load projects.")
	assert.Contains(t, body, "connection refused")
	// the rest of the page still renders
	assert.Contains(t, body, `id="theme-toggle"`)
}

func TestBlogListAndDetail(t *testing.T) {
	h := newTestHandler(t, &mockLoader{items: fixtures()})

	body := get(h, "/blog").Body.String()
	assert.Less(t, strings.Index(body, `data-id="2"`), strings.Index(body, `data-id="1"`))
	assert.Contains(t, body, `href="/blog?id=1"`)
	assert.Contains(t, body, "<title>Blog - Portfolio of Butter</title>")

	rr := get(h, "/blog?id=1")
	require.Equal(t, http.StatusOK, rr.Code)
	body = rr.Body.String()
	assert.Contains(t, body, "<title>First | Butter&#39;s Blog</title>")
	assert.Contains(t, body, `content="Butter, Portfolio, Blog, Notes"`)
	assert.Contains(t, body, "2024.01.02")
	assert.Contains(t, body, `href="/blog"`)
	assert.Contains(t, body, "Body text")

	rr = get(h, "/blog?id=")
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/blog", rr.Header().Get("Location"))
}

func TestBlogMissingDocument(t *testing.T) {
	h := newTestHandler(t, &mockLoader{items: map[content.Kind][]content.Item{}})

	body := get(h, "/blog").Body.String()
	assert.Contains(t, body, "Failed to load blog posts.")
}

func TestThemeToggle(t *testing.T) {
	h := newTestHandler(t, &mockLoader{items: fixtures()})

	rr := post(h, "/theme", url.Values{"return": {"/works?filter=completed"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/works?filter=completed", rr.Header().Get("Location"))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "dark", cookies[0].Value)

	rr = post(h, "/theme", url.Values{"return": {"/"}}, cookies[0])
	assert.Equal(t, "light", rr.Result().Cookies()[0].Value)

	rr = post(h, "/theme", url.Values{"return": {"//evil.example"}})
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestThemeFromClientHint(t *testing.T) {
	h := newTestHandler(t, &mockLoader{items: fixtures()})

	assert.Contains(t, get(h, "/", "Sec-CH-Prefers-Color-Scheme", `"dark"`).Body.String(), `data-theme="dark"`)
	assert.Contains(t, get(h, "/").Body.String(), `data-theme="light"`)
}

func TestDataFilesServed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "works-data.json"), []byte(`{"projects":[]}`), 0o644))
	h := newTestHandler(t, &mockLoader{items: fixtures()}, func(d *Deps) { d.DataDir = dir })

	rr := get(h, "/data/works-data.json")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"projects":[]}`, rr.Body.String())
}

func TestEditorRequiresPersister(t *testing.T) {
	_, err := NewHandler(Deps{Content: &mockLoader{}, Session: editor.NewSession()})
	assert.Error(t, err)
}

func TestEditorRoutesAbsentWhenDisabled(t *testing.T) {
	h := newTestHandler(t, &mockLoader{items: fixtures()})
	assert.Equal(t, http.StatusNotFound, get(h, "/editor").Code)
}

func TestTemplatesParse(t *testing.T) {
	for _, p := range pages {
		_, err := template.New(p).Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+p)
		assert.NoError(t, err, p)
	}
}

func TestBlogShowsLoadError(t *testing.T) {
	h := newTestHandler(t, &mockLoader{err: errors.New("boom")})
	rr := get(h, "/blog")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `class="error"`)
	assert.Contains(t, rr.Body.String(), "Error: boom")
}
