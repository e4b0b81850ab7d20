package render

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kalambet/folio/internal/content"
)

const (
	markerDone    = "✓"
	markerPending = "○"
)

// Hrefs builds the navigation targets cards link to.
type Hrefs struct {
	Toggle func(id int) string
	Detail func(id int) string
}

type TaskView struct {
	Name   string
	Done   bool
	Marker string
}

// WorkView is the display model of one work card.
type WorkView struct {
	ID          int
	Title       string
	Category    string
	Status      string
	StatusLabel string
	Date        string
	DateISO     string
	Progress    int
	Open        bool
	Gallery     Gallery
	Summary     string
	Tasks       []TaskView
	Tags        []string

	item content.Item
}

// StatusLabel turns a status slug into display text: "in-progress" becomes
// "In Progress".
func StatusLabel(status string) string {
	if status == "" {
		return ""
	}
	// Casers carry state, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(status, "-", " "))
}

// NewWorkView computes the card model for it.
func NewWorkView(it content.Item, acc Accordion) WorkView {
	v := WorkView{
		ID:          it.ID,
		Title:       it.DisplayTitle(),
		Category:    it.PrimaryTag(),
		Status:      it.Status,
		StatusLabel: StatusLabel(it.Status),
		Date:        FormatDate(it.LastUpdated),
		DateISO:     it.LastUpdated,
		Progress:    clamp(it.Progress, 0, 100),
		Open:        acc.IsOpen(it.ID),
		Gallery:     BuildGallery(it),
		Summary:     it.Summary,
		Tags:        it.Tags,
		item:        it,
	}
	for _, t := range it.Tasks {
		m := markerPending
		if t.Completed {
			m = markerDone
		}
		v.Tasks = append(v.Tasks, TaskView{Name: t.Name, Done: t.Completed, Marker: m})
	}
	return v
}

// WorkViews computes card models for a projected list.
func WorkViews(items []content.Item, acc Accordion) []WorkView {
	out := make([]WorkView, len(items))
	for i, it := range items {
		out[i] = NewWorkView(it, acc)
	}
	return out
}

// Node builds the card: a header that toggles the accordion and a body
// that is hidden unless the card is open.
func (v WorkView) Node(h Hrefs) (*html.Node, error) {
	class := "work-item"
	if v.Open {
		class += " active"
	}
	card := setAttr(elem(atom.Article, class), "id", "work-"+strconv.Itoa(v.ID))

	statusClass := "work-status"
	if v.Status != "" {
		statusClass += " status-" + v.Status
	}
	href := "#work-" + strconv.Itoa(v.ID)
	if h.Toggle != nil {
		href = h.Toggle(v.ID)
	}
	toggle := link(href, "work-toggle",
		elem(atom.H2, "work-title", text(v.Title)),
	)
	setAttr(toggle, "aria-expanded", strconv.FormatBool(v.Open))
	if v.Category != "" {
		toggle.AppendChild(elem(atom.Span, "work-category", text(v.Category)))
	}
	if v.StatusLabel != "" {
		toggle.AppendChild(elem(atom.Span, statusClass, text(v.StatusLabel)))
	}
	if v.Date != "" {
		toggle.AppendChild(setAttr(elem(atom.Time, "work-date", text("Last updated: "+v.Date)), "datetime", v.DateISO))
	}
	card.AppendChild(elem(atom.Header, "work-header", toggle))

	body := elem(atom.Div, "work-body")
	if !v.Open {
		setAttr(body, "hidden", "")
	}
	appendChildren(body, v.progressNode(), v.Gallery.ImagesNode(), v.Gallery.EmbedsNode())
	if v.Summary != "" {
		body.AppendChild(elem(atom.Div, "work-summary", text(v.Summary)))
	}
	if len(v.Tasks) > 0 {
		list := elem(atom.Ul, "work-tasks")
		for _, t := range v.Tasks {
			cls := "task pending"
			if t.Done {
				cls = "task done"
			}
			list.AppendChild(elem(atom.Li, cls,
				elem(atom.Span, "task-marker", text(t.Marker)),
				text(" "+t.Name),
			))
		}
		body.AppendChild(list)
	}
	details, err := Body(v.item, "work-details")
	if err != nil {
		return nil, err
	}
	body.AppendChild(details)
	if len(v.Tags) > 0 {
		tags := elem(atom.Div, "work-tags")
		for _, t := range v.Tags {
			tags.AppendChild(elem(atom.Span, "tag", text("#"+t)))
		}
		body.AppendChild(tags)
	}
	appendChildren(body, v.Gallery.LinksNode())
	if h.Detail != nil {
		body.AppendChild(link(h.Detail(v.ID), "work-permalink", text("Permalink")))
	}
	card.AppendChild(body)
	return card, nil
}

func (v WorkView) progressNode() *html.Node {
	pct := fmt.Sprintf("%d%%", v.Progress)
	fill := setAttr(elem(atom.Div, "progress-fill"), "style", "width: "+pct)
	return elem(atom.Div, "work-progress-container",
		elem(atom.Div, "progress-label",
			elem(atom.Span, "", text("Progress")),
			elem(atom.Span, "", text(pct)),
		),
		elem(atom.Div, "progress-bar", fill),
	)
}

// WorkList renders every card in order.
func WorkList(views []WorkView, h Hrefs) ([]*html.Node, error) {
	out := make([]*html.Node, 0, len(views))
	for _, v := range views {
		n, err := v.Node(h)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
