// Package web serves the portfolio pages and the content editor.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/content"
	"github.com/kalambet/folio/internal/editor"
	"github.com/kalambet/folio/internal/render"
	"github.com/kalambet/folio/internal/router"
)

//go:embed templates/*.html
var templatesFS embed.FS

// ContentLoader reads the published documents.
type ContentLoader interface {
	Load(ctx context.Context, kind content.Kind) ([]content.Item, error)
}

// Counter is the visit counter shown on the landing page.
type Counter interface {
	IncrementCounter(name string) (int64, error)
}

type Deps struct {
	Content   ContentLoader
	Site      config.Site
	Counter   Counter // optional
	DataDir   string  // served under /data/ when set
	Session   *editor.Session
	Persister editor.Persister // required when Session is set
	Logger    *slog.Logger
}

type server struct {
	deps      Deps
	logger    *slog.Logger
	templates map[string]*template.Template

	// editor session is loaded on first use and by the reload action
	loadMu sync.Mutex
	loaded bool
}

var pages = []string{"home.html", "works.html", "blog.html", "editor.html"}

// NewHandler returns the page router. The editor routes are mounted only
// when deps.Session is set.
func NewHandler(deps Deps) (http.Handler, error) {
	s := &server{
		deps:      deps,
		logger:    deps.Logger,
		templates: make(map[string]*template.Template, len(pages)),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if deps.Site.Pages == nil {
		s.deps.Site = config.DefaultSite()
	}

	for _, p := range pages {
		t, err := template.New(p).Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+p)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", p, err)
		}
		s.templates[p] = t
	}

	r := chi.NewRouter()
	r.Get("/", s.handleHome)
	r.Get("/works", s.handleWorks)
	r.Get("/blog", s.handleBlog)
	r.Post("/theme", s.handleTheme)

	if deps.DataDir != "" {
		r.Handle("/data/*", http.StripPrefix("/data/", http.FileServer(http.Dir(deps.DataDir))))
	}

	if deps.Session != nil {
		if deps.Persister == nil {
			return nil, fmt.Errorf("editor enabled without a persister")
		}
		r.Route("/editor", func(r chi.Router) {
			r.Get("/", s.handleEditor)
			r.Post("/new", s.handleEditorNew)
			r.Post("/select", s.handleEditorSelect)
			r.Post("/update", s.handleEditorUpdate)
			r.Post("/delete", s.handleEditorDelete)
			r.Post("/persist", s.handleEditorPersist)
			r.Post("/reload", s.handleEditorReload)
			r.Post("/kind", s.handleEditorKind)
		})
	}

	return r, nil
}

var funcs = template.FuncMap{
	"statusLabel": render.StatusLabel,
	"date":        render.FormatDate,
}

// page is the data every template receives through the layout.
type page struct {
	Meta     router.Meta
	Theme    string
	Path     string
	Nav      string
	SiteName string
	Editor   bool
}

func (s *server) newPage(r *http.Request, name string, meta router.Meta) page {
	return page{
		Meta:     meta,
		Theme:    themeOf(r),
		Path:     r.URL.RequestURI(),
		Nav:      name,
		SiteName: s.deps.Site.Name,
		Editor:   s.deps.Session != nil,
	}
}

func (s *server) pageMeta(name string) router.PageMeta {
	p := s.deps.Site.Page(name)
	return router.PageMeta{
		Default: router.Meta{
			Title:       p.Title,
			Description: p.Description,
			Keywords:    p.Keywords,
		},
		TitleFormat:  p.TitleFormat,
		BaseKeywords: p.BaseKeywords,
	}
}

// render executes a page into a buffer so template errors never leave a
// half-written response.
func (s *server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("rendering template", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Accept-CH", themeHint)
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
