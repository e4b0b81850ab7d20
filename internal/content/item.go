package content

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Kind selects one of the two content collections. Each kind has its own
// document and its own id namespace.
type Kind string

const (
	KindWorks Kind = "works"
	KindBlog  Kind = "blog"
)

// Kinds lists every content kind in display order.
var Kinds = []Kind{KindWorks, KindBlog}

// ParseKind validates a kind name as sent by clients.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindWorks, KindBlog:
		return Kind(s), nil
	}
	return "", fmt.Errorf("invalid content kind %q", s)
}

// DocumentKey is the top-level JSON key that holds the item list.
func (k Kind) DocumentKey() string {
	if k == KindBlog {
		return "posts"
	}
	return "projects"
}

// FileName is the document file name inside the data directory.
func (k Kind) FileName() string {
	return string(k) + "-data.json"
}

// Statuses a work item may carry. Other values are kept as-is.
const (
	StatusPlanning   = "planning"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Body formats. An empty format is treated as FormatText.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatHTML     = "html" // trusted markup, rendered without escaping
)

// LinkKind is the render strategy for a link, resolved once by Normalize.
type LinkKind int

const (
	LinkGeneric LinkKind = iota
	LinkImage
	LinkEmbed
)

func (k LinkKind) String() string {
	switch k {
	case LinkImage:
		return "image"
	case LinkEmbed:
		return "embed"
	default:
		return "generic"
	}
}

var embedPattern = regexp.MustCompile(`^https?://(www\.)?(twitter\.com|x\.com)/[^/]+/status/\d+`)

// IsEmbeddable reports whether url points at a social post that is shown as an
// embedded card.
func IsEmbeddable(url string) bool {
	return embedPattern.MatchString(url)
}

type Task struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Type  string `json:"type"`

	Kind LinkKind `json:"-"`
}

// Item is a work or a blog post. Fields that belong to the other kind are
// ignored when the item is encoded.
type Item struct {
	Kind Kind `json:"-"`

	ID            int
	Title         string
	Tags          []string
	Thumbnail     string
	Summary       string
	Content       string
	ContentFormat string

	// works
	Status      string
	Progress    int
	LastUpdated string
	Tasks       []Task
	Links       []Link

	// blog
	Date string
}

// DisplayTitle returns the title or "Untitled" when it is blank.
func (it Item) DisplayTitle() string {
	if strings.TrimSpace(it.Title) == "" {
		return "Untitled"
	}
	return it.Title
}

// PrimaryTag is the first tag, used as the item's category.
func (it Item) PrimaryTag() string {
	if len(it.Tags) == 0 {
		return ""
	}
	return it.Tags[0]
}

// SortDate is the date an item is ordered by: lastUpdated for works, date for
// posts.
func (it Item) SortDate() string {
	if it.Kind == KindBlog {
		return it.Date
	}
	if it.LastUpdated == "" {
		return it.Date
	}
	return it.LastUpdated
}

// Normalize fills nil slices and resolves every link's render strategy.
// Image type wins over URL shape.
func (it *Item) Normalize() {
	if it.Tags == nil {
		it.Tags = []string{}
	}
	if it.Kind != KindWorks {
		return
	}
	if it.Tasks == nil {
		it.Tasks = []Task{}
	}
	if it.Links == nil {
		it.Links = []Link{}
	}
	for i := range it.Links {
		l := &it.Links[i]
		switch {
		case l.Type == "image":
			l.Kind = LinkImage
		case IsEmbeddable(l.URL):
			l.Kind = LinkEmbed
		default:
			l.Kind = LinkGeneric
		}
	}
}

type workJSON struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Status        string   `json:"status"`
	Progress      int      `json:"progress"`
	LastUpdated   string   `json:"lastUpdated"`
	Tags          []string `json:"tags"`
	Thumbnail     string   `json:"thumbnail"`
	Summary       string   `json:"summary"`
	Content       string   `json:"content"`
	ContentFormat string   `json:"contentFormat,omitempty"`
	Tasks         []Task   `json:"tasks"`
	Links         []Link   `json:"links"`
	Date          string   `json:"date,omitempty"`
}

type postJSON struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Date          string   `json:"date"`
	Tags          []string `json:"tags"`
	Thumbnail     string   `json:"thumbnail"`
	Summary       string   `json:"summary"`
	Content       string   `json:"content"`
	ContentFormat string   `json:"contentFormat,omitempty"`
}

// MarshalJSON writes the document shape for the item's kind. It does not
// modify it, so items shared between goroutines can be encoded concurrently.
func (it Item) MarshalJSON() ([]byte, error) {
	n := it
	n.Links = slices.Clone(it.Links)
	n.Normalize()
	if n.Kind == KindBlog {
		return json.Marshal(postJSON{
			ID: n.ID, Title: n.Title, Date: n.Date, Tags: n.Tags,
			Thumbnail: n.Thumbnail, Summary: n.Summary, Content: n.Content,
			ContentFormat: n.ContentFormat,
		})
	}
	return json.Marshal(workJSON{
		ID: n.ID, Title: n.Title, Status: n.Status, Progress: n.Progress,
		LastUpdated: n.LastUpdated, Tags: n.Tags, Thumbnail: n.Thumbnail,
		Summary: n.Summary, Content: n.Content, ContentFormat: n.ContentFormat,
		Tasks: n.Tasks, Links: n.Links, Date: n.Date,
	})
}

type itemJSON struct {
	ID            flexInt  `json:"id"`
	Title         string   `json:"title"`
	Tags          []string `json:"tags"`
	Thumbnail     string   `json:"thumbnail"`
	Summary       string   `json:"summary"`
	Content       string   `json:"content"`
	ContentFormat string   `json:"contentFormat"`
	Status        string   `json:"status"`
	Progress      flexInt  `json:"progress"`
	LastUpdated   string   `json:"lastUpdated"`
	Tasks         []Task   `json:"tasks"`
	Links         []Link   `json:"links"`
	Date          string   `json:"date"`
}

// UnmarshalJSON accepts both item shapes. The kind is set by the enclosing
// document.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*it = Item{
		Kind:          it.Kind,
		ID:            int(raw.ID),
		Title:         raw.Title,
		Tags:          raw.Tags,
		Thumbnail:     raw.Thumbnail,
		Summary:       raw.Summary,
		Content:       raw.Content,
		ContentFormat: raw.ContentFormat,
		Status:        raw.Status,
		Progress:      int(raw.Progress),
		LastUpdated:   raw.LastUpdated,
		Tasks:         raw.Tasks,
		Links:         raw.Links,
		Date:          raw.Date,
	}
	return nil
}

// flexInt decodes a JSON integer or a string holding one. Older documents
// stored ids as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	if i, err := strconv.Atoi(s); err == nil {
		*f = flexInt(i)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) || math.IsInf(v, 0) {
		return fmt.Errorf("value %s is not an integer", data)
	}
	*f = flexInt(v)
	return nil
}
