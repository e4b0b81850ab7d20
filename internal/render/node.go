// Package render turns content items into display node trees.
//
// View models (WorkView, PostView, Gallery) are computed from items by pure
// functions; the Node methods apply them to an x/net/html tree. Item text is
// always added as text nodes, so it is escaped when the tree is serialised.
// Only bodies whose format is "html" are parsed as markup.
package render

import (
	"bytes"
	"html/template"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func elem(a atom.Atom, class string, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if class != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
	}
	return appendChildren(n, children...)
}

// appendChildren skips nil children.
func appendChildren(n *html.Node, children ...*html.Node) *html.Node {
	for _, c := range children {
		if c != nil {
			n.AppendChild(c)
		}
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func setAttr(n *html.Node, key, val string) *html.Node {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return n
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	return n
}

func link(href, class string, children ...*html.Node) *html.Node {
	return setAttr(elem(atom.A, class, children...), "href", safeURL(href))
}

func externalLink(href, class string, children ...*html.Node) *html.Node {
	a := link(href, class, children...)
	setAttr(a, "target", "_blank")
	return setAttr(a, "rel", "noopener noreferrer")
}

func image(src, alt, class string) *html.Node {
	img := elem(atom.Img, class)
	setAttr(img, "src", safeURL(src))
	setAttr(img, "alt", alt)
	return setAttr(img, "loading", "lazy")
}

// safeURL blanks out script URLs. Attribute values are escaped on render,
// but a javascript: href would still run when followed.
func safeURL(u string) string {
	s := strings.ToLower(strings.TrimSpace(u))
	s = strings.Map(func(r rune) rune {
		if r < ' ' {
			return -1
		}
		return r
	}, s)
	if strings.HasPrefix(s, "javascript:") || strings.HasPrefix(s, "vbscript:") || strings.HasPrefix(s, "data:text/html") {
		return "#"
	}
	return u
}

// HTML serialises n for use in a page template.
func HTML(n *html.Node) (template.HTML, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// HTMLAll serialises a list of nodes in order.
func HTMLAll(nodes []*html.Node) (template.HTML, error) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return template.HTML(buf.String()), nil
}

// FormatDate shows a yyyy-mm-dd date as yyyy.mm.dd.
func FormatDate(date string) string {
	return strings.ReplaceAll(date, "-", ".")
}
