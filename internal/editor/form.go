package editor

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kalambet/folio/internal/content"
)

// FormState is the editor form as submitted. Tasks and Links hold the
// dynamic rows that survived parsing.
type FormState struct {
	Title         string
	Tags          string
	Thumbnail     string
	Summary       string
	Content       string
	ContentFormat string

	Status      string
	Progress    int
	LastUpdated string
	Tasks       []content.Task
	Links       []content.Link

	Date string
}

var rowKey = regexp.MustCompile(`^(task|link)-(\d+)-(name|completed|label|url|type|remove)$`)

type row struct {
	fields map[string]string
}

// ParseForm reads a submitted editor form. Dynamic rows are named
// task-<n>-name, task-<n>-completed, link-<n>-label, link-<n>-url and
// link-<n>-type; they are collected in index order. A task without a name,
// a link with neither label nor url and any row with <kind>-<n>-remove set
// are dropped.
func ParseForm(v url.Values) FormState {
	f := FormState{
		Title:         v.Get("title"),
		Tags:          v.Get("tags"),
		Thumbnail:     strings.TrimSpace(v.Get("thumbnail")),
		Summary:       v.Get("summary"),
		Content:       v.Get("content"),
		ContentFormat: v.Get("contentFormat"),
		Status:        v.Get("status"),
		LastUpdated:   v.Get("lastUpdated"),
		Date:          v.Get("date"),
	}
	if p, err := strconv.Atoi(strings.TrimSpace(v.Get("progress"))); err == nil {
		f.Progress = p
	}

	rows := map[string]map[int]*row{"task": {}, "link": {}}
	for key, vals := range v {
		m := rowKey.FindStringSubmatch(key)
		if m == nil || len(vals) == 0 {
			continue
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		r, ok := rows[m[1]][idx]
		if !ok {
			r = &row{fields: map[string]string{}}
			rows[m[1]][idx] = r
		}
		r.fields[m[3]] = vals[len(vals)-1]
	}

	for _, r := range ordered(rows["task"]) {
		name := strings.TrimSpace(r.fields["name"])
		if name == "" || checked(r.fields["remove"]) {
			continue
		}
		f.Tasks = append(f.Tasks, content.Task{Name: name, Completed: checked(r.fields["completed"])})
	}
	for _, r := range ordered(rows["link"]) {
		label := strings.TrimSpace(r.fields["label"])
		u := strings.TrimSpace(r.fields["url"])
		if (label == "" && u == "") || checked(r.fields["remove"]) {
			continue
		}
		typ := r.fields["type"]
		if typ != "image" {
			typ = "link"
		}
		f.Links = append(f.Links, content.Link{Label: label, URL: u, Type: typ})
	}
	return f
}

func ordered(m map[int]*row) []*row {
	idx := make([]int, 0, len(m))
	for i := range m {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]*row, len(idx))
	for i, k := range idx {
		out[i] = m[k]
	}
	return out
}

func checked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// SplitTags splits a comma separated tag list, trimming blanks.
func SplitTags(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Item builds the item the form describes. Progress is clamped to [0,100]
// and an empty status becomes planning.
func (f FormState) Item(kind content.Kind, id int) content.Item {
	it := content.Item{
		Kind:          kind,
		ID:            id,
		Title:         f.Title,
		Tags:          SplitTags(f.Tags),
		Thumbnail:     f.Thumbnail,
		Summary:       f.Summary,
		Content:       f.Content,
		ContentFormat: normalizeFormat(f.ContentFormat),
	}
	if kind == content.KindBlog {
		it.Date = f.Date
		it.Normalize()
		return it
	}
	it.Status = f.Status
	if it.Status == "" {
		it.Status = content.StatusPlanning
	}
	it.Progress = min(max(f.Progress, 0), 100)
	it.LastUpdated = f.LastUpdated
	it.Tasks = append([]content.Task{}, f.Tasks...)
	it.Links = append([]content.Link{}, f.Links...)
	it.Normalize()
	return it
}

// FormOf is the inverse of Item, used to fill the form for a selection.
func FormOf(it content.Item) FormState {
	return FormState{
		Title:         it.Title,
		Tags:          strings.Join(it.Tags, ", "),
		Thumbnail:     it.Thumbnail,
		Summary:       it.Summary,
		Content:       it.Content,
		ContentFormat: it.ContentFormat,
		Status:        it.Status,
		Progress:      it.Progress,
		LastUpdated:   it.LastUpdated,
		Tasks:         it.Tasks,
		Links:         it.Links,
		Date:          it.Date,
	}
}

func normalizeFormat(f string) string {
	switch f {
	case content.FormatMarkdown, content.FormatHTML:
		return f
	}
	return ""
}
