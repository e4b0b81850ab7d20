// Package editor holds the content editor's working copies and the
// operations the editor page performs on them.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/folio/internal/content"
)

var (
	// ErrNoSelection is returned by operations that need a selected item.
	ErrNoSelection = errors.New("no item selected")
	// ErrNotConfirmed is returned by Delete when the caller did not confirm.
	ErrNotConfirmed = errors.New("delete not confirmed")
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Loader reads a kind's published document. Implemented by content.Library.
type Loader interface {
	Load(ctx context.Context, kind content.Kind) ([]content.Item, error)
}

// Session is the editor state: one working copy per kind, the active kind
// and the selected item. It is safe for concurrent use.
type Session struct {
	clock  Clock
	logger *slog.Logger

	mu       sync.Mutex
	items    map[content.Kind][]content.Item
	kind     content.Kind
	selected int
	hasSel   bool
}

// NewSession creates an empty session on the works kind.
func NewSession() *Session {
	return NewSessionWithClock(realClock{})
}

// NewSessionWithClock creates a session with a custom clock (for testing).
func NewSessionWithClock(clock Clock) *Session {
	return &Session{
		clock:  clock,
		logger: slog.Default(),
		items: map[content.Kind][]content.Item{
			content.KindWorks: {},
			content.KindBlog:  {},
		},
		kind: content.KindWorks,
	}
}

func (s *Session) today() string {
	return s.clock.Now().Format("2006-01-02")
}

// Load replaces both working copies with the published documents. A
// document that does not exist yet loads as empty. On any other error
// neither working copy changes.
func (s *Session) Load(ctx context.Context, l Loader) error {
	var works, posts []content.Item
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		works, err = loadKind(gctx, l, content.KindWorks)
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = loadKind(gctx, l, content.KindBlog)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[content.KindWorks] = works
	s.items[content.KindBlog] = posts
	s.selectFirstOrCreate()
	s.logger.Debug("editor loaded", "works", len(works), "posts", len(posts))
	return nil
}

func loadKind(ctx context.Context, l Loader, kind content.Kind) ([]content.Item, error) {
	items, err := l.Load(ctx, kind)
	if errors.Is(err, content.ErrNotExist) {
		return []content.Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", kind, err)
	}
	return items, nil
}

// SwitchKind makes kind active and selects its first item, creating one
// when its working copy is empty.
func (s *Session) SwitchKind(kind content.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kind = kind
	s.selectFirstOrCreate()
}

// Kind returns the active kind.
func (s *Session) Kind() content.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// Create appends a new item with default fields to the active working copy
// and selects it.
func (s *Session) Create() content.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create()
}

func (s *Session) create() content.Item {
	list := s.items[s.kind]
	it := content.Item{
		Kind: s.kind,
		ID:   content.NextID(list),
		Tags: []string{},
	}
	if s.kind == content.KindWorks {
		it.Title = "New Project"
		it.Status = content.StatusPlanning
		it.Progress = 0
		it.LastUpdated = s.today()
		it.Tasks = []content.Task{}
		it.Links = []content.Link{}
	} else {
		it.Title = "New Blog Post"
		it.Date = s.today()
	}
	s.items[s.kind] = append(list, it)
	s.selected, s.hasSel = it.ID, true
	return it
}

// Select makes id the selected item. It reports false and keeps the
// previous selection when no such item exists.
func (s *Session) Select(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := content.FindByID(s.items[s.kind], id); !ok {
		return false
	}
	s.selected, s.hasSel = id, true
	return true
}

// Selected returns the selected item.
func (s *Session) Selected() (content.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

func (s *Session) current() (content.Item, bool) {
	if !s.hasSel {
		return content.Item{}, false
	}
	return content.FindByID(s.items[s.kind], s.selected)
}

// Update rebuilds the selected item from form. The id and kind are kept.
func (s *Session) Update(form FormState) (content.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.items[s.kind]
	idx := -1
	if s.hasSel {
		for i := range list {
			if list[i].ID == s.selected {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return content.Item{}, ErrNoSelection
	}

	it := form.Item(s.kind, s.selected)
	list[idx] = it
	return it, nil
}

// Delete removes the selected item. The caller must pass confirmed; the
// form is never left without a selection, so an emptied working copy gets a
// fresh item and otherwise the first remaining item is selected.
func (s *Session) Delete(confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.current(); !ok {
		return ErrNoSelection
	}
	list := s.items[s.kind]
	kept := make([]content.Item, 0, len(list))
	for _, it := range list {
		if it.ID != s.selected {
			kept = append(kept, it)
		}
	}
	s.items[s.kind] = kept
	s.hasSel = false
	s.selectFirstOrCreate()
	return nil
}

func (s *Session) selectFirstOrCreate() {
	list := s.items[s.kind]
	if len(list) == 0 {
		s.create()
		return
	}
	s.selected, s.hasSel = list[0].ID, true
}

// Document returns a copy of the active working copy as a document.
func (s *Session) Document() content.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document()
}

func (s *Session) document() content.Document {
	list := s.items[s.kind]
	items := make([]content.Item, len(list))
	copy(items, list)
	return content.Document{Kind: s.kind, Items: items}
}

// ExportJSON renders the active working copy as indented JSON.
func (s *Session) ExportJSON() (string, error) {
	data, err := s.Document().Encode()
	if err != nil {
		return "", fmt.Errorf("encoding %s working copy: %w", s.Kind(), err)
	}
	return string(data), nil
}

// Persist sends the whole active working copy to p. The working copy is
// never modified, whatever the outcome.
func (s *Session) Persist(ctx context.Context, p Persister) (Result, error) {
	doc := s.Document()
	res, err := p.Persist(ctx, doc)
	if err != nil {
		s.logger.Warn("persist failed", "kind", doc.Kind, "error", err)
		return res, err
	}
	if !res.Success {
		return res, fmt.Errorf("%w: %s", ErrRejected, res.Message)
	}
	s.logger.Info("persisted working copy", "kind", doc.Kind, "items", len(doc.Items))
	return res, nil
}

// Snapshot is a consistent copy of the session for display.
type Snapshot struct {
	Kind         content.Kind
	Items        []content.Item
	Selected     content.Item
	HasSelection bool
	JSON         string

	// Form is the selection as the edit form shows it. Blank dates are
	// filled with today.
	Form FormState
}

// Snapshot captures the session state and its export in one step.
func (s *Session) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	doc := s.document()
	sel, ok := s.current()
	s.mu.Unlock()

	data, err := doc.Encode()
	if err != nil {
		return Snapshot{}, fmt.Errorf("encoding %s working copy: %w", doc.Kind, err)
	}
	snap := Snapshot{
		Kind:         doc.Kind,
		Items:        doc.Items,
		Selected:     sel,
		HasSelection: ok,
		JSON:         string(data),
	}
	if ok {
		snap.Form = FormOf(sel)
		if doc.Kind == content.KindWorks && snap.Form.LastUpdated == "" {
			snap.Form.LastUpdated = s.today()
		}
		if doc.Kind == content.KindBlog && snap.Form.Date == "" {
			snap.Form.Date = s.today()
		}
	}
	return snap, nil
}
