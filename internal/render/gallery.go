package render

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kalambet/folio/internal/content"
)

type Media struct {
	URL   string
	Label string
}

// Gallery buckets an item's media. Order within each bucket follows the
// item: the thumbnail leads Images, then image links in link order.
type Gallery struct {
	Images []Media
	Embeds []content.Link
	Links  []content.Link
}

func (g Gallery) Empty() bool {
	return len(g.Images) == 0 && len(g.Embeds) == 0 && len(g.Links) == 0
}

// BuildGallery dispatches on each link's resolved kind.
func BuildGallery(it content.Item) Gallery {
	var g Gallery
	if it.Thumbnail != "" {
		g.Images = append(g.Images, Media{URL: it.Thumbnail, Label: it.DisplayTitle()})
	}
	for _, l := range it.Links {
		switch l.Kind {
		case content.LinkImage:
			label := l.Label
			if label == "" {
				label = it.DisplayTitle()
			}
			g.Images = append(g.Images, Media{URL: l.URL, Label: label})
		case content.LinkEmbed:
			g.Embeds = append(g.Embeds, l)
		default:
			g.Links = append(g.Links, l)
		}
	}
	return g
}

// Nodes renders the gallery, then the embeds, then the remaining links.
// Empty buckets produce no node.
func (g Gallery) Nodes() []*html.Node {
	var out []*html.Node
	for _, n := range []*html.Node{g.ImagesNode(), g.EmbedsNode(), g.LinksNode()} {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (g Gallery) ImagesNode() *html.Node {
	if len(g.Images) == 0 {
		return nil
	}
	gal := elem(atom.Div, "work-gallery")
	for _, m := range g.Images {
		gal.AppendChild(image(m.URL, m.Label, "gallery-image"))
	}
	return gal
}

func (g Gallery) EmbedsNode() *html.Node {
	if len(g.Embeds) == 0 {
		return nil
	}
	box := elem(atom.Div, "work-embeds")
	for _, l := range g.Embeds {
		box.AppendChild(embedCard(l))
	}
	return box
}

func (g Gallery) LinksNode() *html.Node {
	if len(g.Links) == 0 {
		return nil
	}
	box := elem(atom.Div, "work-links")
	for _, l := range g.Links {
		box.AppendChild(externalLink(l.URL, "work-link", text(linkLabel(l))))
	}
	return box
}

func linkLabel(l content.Link) string {
	if l.Label == "" {
		return l.URL
	}
	return l.Label
}

// embedCard is the blockquote markup the social widget script upgrades into
// a card. Without the script it still reads as a link.
func embedCard(l content.Link) *html.Node {
	q := elem(atom.Blockquote, "twitter-tweet",
		elem(atom.P, "", externalLink(l.URL, "", text(linkLabel(l)))),
	)
	return setAttr(q, "data-dnt", "true")
}
