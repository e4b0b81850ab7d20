package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kalambet/folio/internal/content"
)

// Raw HTML inside markdown is dropped; only the "html" format is trusted.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// Body renders item content into a container element with the given class.
func Body(it content.Item, class string) (*html.Node, error) {
	container := elem(atom.Div, class)
	switch it.ContentFormat {
	case "", content.FormatText:
		for _, p := range paragraphs(it.Content) {
			container.AppendChild(paragraph(p))
		}
	case content.FormatMarkdown:
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(it.Content), &buf); err != nil {
			return nil, fmt.Errorf("converting markdown for item %d: %w", it.ID, err)
		}
		if err := appendFragment(container, buf.String()); err != nil {
			return nil, fmt.Errorf("parsing markdown output for item %d: %w", it.ID, err)
		}
	case content.FormatHTML:
		if err := appendFragment(container, it.Content); err != nil {
			return nil, fmt.Errorf("parsing html content for item %d: %w", it.ID, err)
		}
	default:
		return nil, fmt.Errorf("item %d: unknown content format %q", it.ID, it.ContentFormat)
	}
	return container, nil
}

// MarkupOf returns the item body as an HTML string.
func MarkupOf(it content.Item) (string, error) {
	n, err := Body(it, "")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func appendFragment(parent *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
	})
	if err != nil {
		return err
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

func paragraphs(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(s, "\n\n") {
		if strings.TrimSpace(block) != "" {
			out = append(out, strings.Trim(block, "\n"))
		}
	}
	return out
}

func paragraph(block string) *html.Node {
	p := elem(atom.P, "")
	for i, line := range strings.Split(block, "\n") {
		if i > 0 {
			p.AppendChild(elem(atom.Br, ""))
		}
		p.AppendChild(text(line))
	}
	return p
}
