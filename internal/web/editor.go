package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/content"
	"github.com/kalambet/folio/internal/editor"
)

// spareRows is the number of empty task and link rows offered for new
// entries. Blank rows are dropped when the form is parsed.
const spareRows = 2

var notices = map[string]func(kind content.Kind) string{
	"saved":    func(k content.Kind) string { return fmt.Sprintf("Saved %s data successfully!", k) },
	"deleted":  func(content.Kind) string { return "Item deleted." },
	"reloaded": func(content.Kind) string { return "Reloaded published data." },
	"updated":  func(content.Kind) string { return "Changes kept in the working copy. Save to publish them." },
}

type listEntry struct {
	ID     int
	Title  string
	Status string
	Date   string
	Active bool
}

type taskRow struct {
	Index     int
	Name      string
	Completed bool
}

type linkRow struct {
	Index int
	Label string
	URL   string
	Image bool
}

type editorPage struct {
	page
	Kind     content.Kind
	Works    bool
	List     []listEntry
	Selected content.Item
	HasSel   bool
	Form     editor.FormState
	Tasks    []taskRow
	Links    []linkRow
	Statuses []string
	Formats  []string
	JSON     string
	Notice   string
	Error    string
}

// ensureLoaded loads the published documents into the session once.
func (s *server) ensureLoaded(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.loaded {
		return nil
	}
	if err := s.deps.Session.Load(ctx, s.deps.Content); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

func (s *server) reload(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if err := s.deps.Session.Load(ctx, s.deps.Content); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

func (s *server) handleEditor(w http.ResponseWriter, r *http.Request) {
	var loadErr string
	if err := s.ensureLoaded(r.Context()); err != nil {
		s.logger.Error("loading editor data", "error", err)
		loadErr = fmt.Sprintf("Error loading data: %v", err)
	}

	if k := r.URL.Query().Get("kind"); k != "" {
		kind, err := content.ParseKind(k)
		if err != nil {
			http.Redirect(w, r, "/editor", http.StatusFound)
			return
		}
		if kind != s.deps.Session.Kind() {
			s.deps.Session.SwitchKind(kind)
		}
	}

	notice := ""
	if msg, ok := notices[r.URL.Query().Get("notice")]; ok {
		notice = msg(s.deps.Session.Kind())
	}
	s.renderEditor(w, r, http.StatusOK, notice, loadErr)
}

func (s *server) renderEditor(w http.ResponseWriter, r *http.Request, status int, notice, errMsg string) {
	snap, err := s.deps.Session.Snapshot()
	if err != nil {
		s.logger.Error("editor snapshot", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	data := editorPage{
		page:     s.newPage(r, config.PageEditor, s.pageMeta(config.PageEditor).Default),
		Kind:     snap.Kind,
		Works:    snap.Kind == content.KindWorks,
		Selected: snap.Selected,
		HasSel:   snap.HasSelection,
		Statuses: []string{content.StatusPlanning, content.StatusInProgress, content.StatusCompleted},
		Formats:  []string{content.FormatText, content.FormatMarkdown, content.FormatHTML},
		JSON:     snap.JSON,
		Notice:   notice,
		Error:    errMsg,
	}

	// newest first
	for _, it := range slices.Backward(snap.Items) {
		e := listEntry{
			ID:     it.ID,
			Title:  it.DisplayTitle(),
			Status: it.Status,
			Date:   it.SortDate(),
			Active: snap.HasSelection && it.ID == snap.Selected.ID,
		}
		data.List = append(data.List, e)
	}

	if snap.HasSelection {
		data.Form = snap.Form
		if data.Form.ContentFormat == "" {
			data.Form.ContentFormat = content.FormatText
		}
		// keep unknown statuses selectable so a save does not rewrite them
		if data.Works && data.Form.Status != "" && !slices.Contains(data.Statuses, data.Form.Status) {
			data.Statuses = append(data.Statuses, data.Form.Status)
		}
		for i, t := range snap.Selected.Tasks {
			data.Tasks = append(data.Tasks, taskRow{Index: i, Name: t.Name, Completed: t.Completed})
		}
		for i, l := range snap.Selected.Links {
			data.Links = append(data.Links, linkRow{Index: i, Label: l.Label, URL: l.URL, Image: l.Type == "image"})
		}
	}
	for i := 0; i < spareRows; i++ {
		data.Tasks = append(data.Tasks, taskRow{Index: len(snap.Selected.Tasks) + i})
		data.Links = append(data.Links, linkRow{Index: len(snap.Selected.Links) + i})
	}

	s.render(w, status, "editor.html", data)
}

// done finishes an editor action with a redirect so a refresh does not
// repeat it.
func done(w http.ResponseWriter, r *http.Request, notice string) {
	target := "/editor"
	if notice != "" {
		target += "?notice=" + notice
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *server) editorAction(w http.ResponseWriter, r *http.Request) bool {
	if err := s.ensureLoaded(r.Context()); err != nil {
		s.logger.Error("loading editor data", "error", err)
		s.renderEditor(w, r, http.StatusOK, "", fmt.Sprintf("Error loading data: %v", err))
		return false
	}
	if err := r.ParseForm(); err != nil {
		s.renderEditor(w, r, http.StatusBadRequest, "", fmt.Sprintf("Invalid form: %v", err))
		return false
	}
	return true
}

func (s *server) handleEditorNew(w http.ResponseWriter, r *http.Request) {
	if !s.editorAction(w, r) {
		return
	}
	s.deps.Session.Create()
	done(w, r, "")
}

func (s *server) handleEditorSelect(w http.ResponseWriter, r *http.Request) {
	if !s.editorAction(w, r) {
		return
	}
	id, err := strconv.Atoi(r.PostForm.Get("id"))
	if err != nil || !s.deps.Session.Select(id) {
		s.renderEditor(w, r, http.StatusNotFound, "", fmt.Sprintf("No %s item with id %q.", s.deps.Session.Kind(), r.PostForm.Get("id")))
		return
	}
	done(w, r, "")
}

// applyForm writes the submitted form into the selected item. Requests
// that carry no editor form leave the working copy untouched.
func (s *server) applyForm(r *http.Request) error {
	if !r.PostForm.Has("title") {
		return nil
	}
	_, err := s.deps.Session.Update(editor.ParseForm(r.PostForm))
	return err
}

func (s *server) handleEditorUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.editorAction(w, r) {
		return
	}
	if err := s.applyForm(r); err != nil {
		s.renderEditor(w, r, http.StatusConflict, "", err.Error())
		return
	}
	done(w, r, "updated")
}

func (s *server) handleEditorDelete(w http.ResponseWriter, r *http.Request) {
	if !s.editorAction(w, r) {
		return
	}
	err := s.deps.Session.Delete(r.PostForm.Get("confirm") != "")
	switch {
	case errors.Is(err, editor.ErrNotConfirmed):
		s.renderEditor(w, r, http.StatusOK, "", "Tick the confirmation box to delete this item.")
	case err != nil:
		s.renderEditor(w, r, http.StatusConflict, "", err.Error())
	default:
		done(w, r, "deleted")
	}
}

func (s *server) handleEditorPersist(w http.ResponseWriter, r *http.Request) {
	if !s.editorAction(w, r) {
		return
	}
	if err := s.applyForm(r); err != nil {
		s.renderEditor(w, r, http.StatusConflict, "", err.Error())
		return
	}

	res, err := s.deps.Session.Persist(r.Context(), s.deps.Persister)
	switch {
	case errors.Is(err, editor.ErrRejected):
		s.renderEditor(w, r, http.StatusOK, "", "Server reported error: "+res.Message)
	case err != nil:
		s.renderEditor(w, r, http.StatusOK, "", fmt.Sprintf("Error saving to server: %v", err))
	default:
		done(w, r, "saved")
	}
}

func (s *server) handleEditorReload(w http.ResponseWriter, r *http.Request) {
	if err := s.reload(r.Context()); err != nil {
		s.logger.Error("reloading editor data", "error", err)
		s.renderEditor(w, r, http.StatusOK, "", fmt.Sprintf("Error loading data: %v", err))
		return
	}
	done(w, r, "reloaded")
}

func (s *server) handleEditorKind(w http.ResponseWriter, r *http.Request) {
	if !s.editorAction(w, r) {
		return
	}
	kind, err := content.ParseKind(r.PostForm.Get("kind"))
	if err != nil {
		s.renderEditor(w, r, http.StatusBadRequest, "", err.Error())
		return
	}
	s.deps.Session.SwitchKind(kind)
	done(w, r, "")
}
