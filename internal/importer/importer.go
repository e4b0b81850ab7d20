// Package importer turns markdown and PDF files into content items and
// appends them to the published documents.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adrg/frontmatter"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kalambet/folio/internal/content"
	"github.com/kalambet/folio/internal/editor"
)

// ErrUnsupported is returned for files that are neither markdown nor PDF.
var ErrUnsupported = errors.New("unsupported file type")

// summaryLen caps summaries derived from the body.
const summaryLen = 160

// meta is the front matter a markdown file may carry.
type meta struct {
	Kind        string   `yaml:"kind"`
	Title       string   `yaml:"title"`
	Date        string   `yaml:"date"`
	Tags        []string `yaml:"tags"`
	Summary     string   `yaml:"summary"`
	Thumbnail   string   `yaml:"thumbnail"`
	Status      string   `yaml:"status"`
	Progress    int      `yaml:"progress"`
	LastUpdated string   `yaml:"lastUpdated"`
}

// Markdown builds an item from a markdown file with optional front matter.
// The kind defaults to blog; the title falls back to the file name.
func Markdown(r io.Reader, name string, now time.Time) (content.Item, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return content.Item{}, fmt.Errorf("reading %s: %w", name, err)
	}

	var m meta
	body, err := frontmatter.Parse(bytes.NewReader(raw), &m)
	if err != nil {
		// no usable front matter: the whole file is the body
		body, m = raw, meta{}
	}

	kind := content.KindBlog
	if m.Kind != "" {
		if kind, err = content.ParseKind(m.Kind); err != nil {
			return content.Item{}, fmt.Errorf("%s: %w", name, err)
		}
	}

	text := strings.TrimSpace(string(body))
	it := content.Item{
		Kind:          kind,
		Title:         titleOr(m.Title, name),
		Tags:          m.Tags,
		Thumbnail:     m.Thumbnail,
		Summary:       summaryOr(m.Summary, text),
		Content:       text,
		ContentFormat: content.FormatMarkdown,
	}
	today := now.Format("2006-01-02")
	if kind == content.KindWorks {
		it.Status = m.Status
		if it.Status == "" {
			it.Status = content.StatusPlanning
		}
		it.Progress = min(max(m.Progress, 0), 100)
		it.LastUpdated = or(m.LastUpdated, today)
	} else {
		it.Date = or(m.Date, today)
	}
	it.Normalize()
	return it, nil
}

// PDF builds a blog post from the plain text of a PDF file.
func PDF(path string, now time.Time) (content.Item, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return content.Item{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return content.Item{}, fmt.Errorf("extracting text from %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return content.Item{}, fmt.Errorf("reading text from %s: %w", path, err)
	}

	text := strings.TrimSpace(buf.String())
	it := content.Item{
		Kind:          content.KindBlog,
		Title:         titleOr("", filepath.Base(path)),
		Summary:       summaryOr("", text),
		Content:       text,
		ContentFormat: content.FormatText,
		Date:          now.Format("2006-01-02"),
	}
	it.Normalize()
	return it, nil
}

// File dispatches on the file extension.
func File(path string, now time.Time) (content.Item, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		f, err := os.Open(path)
		if err != nil {
			return content.Item{}, err
		}
		defer f.Close()
		return Markdown(f, filepath.Base(path), now)
	case ".pdf":
		return PDF(path, now)
	default:
		return content.Item{}, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

// Loader reads a published document.
type Loader interface {
	Load(ctx context.Context, kind content.Kind) ([]content.Item, error)
}

// Saver writes a whole document payload.
type Saver interface {
	Save(kind content.Kind, payload json.RawMessage) (editor.Result, error)
}

// Importer appends imported items to the published documents.
type Importer struct {
	Content Loader
	Saver   Saver
	Now     func() time.Time
	Logger  *slog.Logger
}

// Import parses every path and appends the items to their kind's document.
// Ids continue from the largest existing id. Nothing is written when any
// file fails to parse.
func (im *Importer) Import(ctx context.Context, paths ...string) ([]content.Item, error) {
	now := time.Now()
	if im.Now != nil {
		now = im.Now()
	}

	var parsed []content.Item
	for _, p := range paths {
		it, err := File(p, now)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, it)
	}

	var imported []content.Item
	for _, kind := range content.Kinds {
		var batch []content.Item
		for _, it := range parsed {
			if it.Kind == kind {
				batch = append(batch, it)
			}
		}
		if len(batch) == 0 {
			continue
		}

		items, err := im.Content.Load(ctx, kind)
		if err != nil && !errors.Is(err, content.ErrNotExist) {
			return imported, fmt.Errorf("loading %s: %w", kind, err)
		}
		for _, it := range batch {
			it.ID = content.NextID(items)
			items = append(items, it)
			imported = append(imported, it)
		}

		payload, err := json.Marshal(content.Document{Kind: kind, Items: items})
		if err != nil {
			return imported, fmt.Errorf("encoding %s document: %w", kind, err)
		}
		res, err := im.Saver.Save(kind, payload)
		if err != nil {
			return imported, fmt.Errorf("saving %s: %w", kind, err)
		}
		im.logger().Info(res.Message, "kind", kind, "imported", len(batch))
	}
	return imported, nil
}

func (im *Importer) logger() *slog.Logger {
	if im.Logger != nil {
		return im.Logger
	}
	return slog.Default()
}

func titleOr(title, file string) string {
	if strings.TrimSpace(title) != "" {
		return title
	}
	base := strings.TrimSuffix(file, filepath.Ext(file))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return cases.Title(language.English).String(base)
}

// summaryOr falls back to the first paragraph of body, cut at a word
// boundary.
func summaryOr(summary, body string) string {
	if summary != "" {
		return summary
	}
	para, _, _ := strings.Cut(body, "\n\n")
	para = strings.Join(strings.Fields(para), " ")
	para = strings.TrimLeft(para, "# ")
	if len(para) <= summaryLen {
		return para
	}
	cut := strings.LastIndex(para[:summaryLen], " ")
	if cut <= 0 {
		cut = summaryLen
		for cut > 0 && !utf8.RuneStart(para[cut]) {
			cut--
		}
	}
	return para[:cut] + "…"
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
