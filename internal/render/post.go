package render

import (
	"fmt"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kalambet/folio/internal/content"
)

// PostView is the display model of a blog card or article.
type PostView struct {
	ID        int
	Title     string
	Date      string
	DateISO   string
	Tags      []string
	Summary   string
	Thumbnail string
	Index     int

	item content.Item
}

// NewPostView computes the model for a post shown at position index.
func NewPostView(it content.Item, index int) PostView {
	return PostView{
		ID:        it.ID,
		Title:     it.DisplayTitle(),
		Date:      FormatDate(it.Date),
		DateISO:   it.Date,
		Tags:      it.Tags,
		Summary:   it.Summary,
		Thumbnail: it.Thumbnail,
		Index:     index,
		item:      it,
	}
}

func PostViews(items []content.Item) []PostView {
	out := make([]PostView, len(items))
	for i, it := range items {
		out[i] = NewPostView(it, i)
	}
	return out
}

func (v PostView) meta() *html.Node {
	m := elem(atom.Div, "blog-meta",
		setAttr(elem(atom.Time, "", text(v.Date)), "datetime", v.DateISO),
	)
	for _, t := range v.Tags {
		m.AppendChild(elem(atom.Span, "blog-tag", text(t)))
	}
	return m
}

// Card builds the list entry linking to detail.
func (v PostView) Card(detail string) *html.Node {
	card := elem(atom.Article, "blog-card",
		v.meta(),
		elem(atom.H2, "blog-title", text(v.Title)),
		elem(atom.P, "blog-excerpt", text(v.Summary)),
		link(detail, "read-more", text("Read Article ->")),
	)
	setAttr(card, "style", fmt.Sprintf("animation-delay: %.1fs", float64(v.Index)*0.1))
	return setAttr(card, "data-id", strconv.Itoa(v.ID))
}

// Article builds the full post with a link back to the list.
func (v PostView) Article(back string) (*html.Node, error) {
	body, err := Body(v.item, "article-body")
	if err != nil {
		return nil, err
	}
	setAttr(body, "id", "article-body")

	header := elem(atom.Header, "article-header",
		setAttr(setAttr(elem(atom.Time, "article-date", text(v.Date)), "datetime", v.DateISO), "id", "article-date"),
		setAttr(elem(atom.H1, "article-title", text(v.Title)), "id", "article-title"),
	)
	tags := setAttr(elem(atom.Div, "article-tags"), "id", "article-tags")
	for _, t := range v.Tags {
		tags.AppendChild(elem(atom.Span, "blog-tag", text(t)))
	}
	header.AppendChild(tags)

	var thumb *html.Node
	if v.Thumbnail != "" {
		thumb = setAttr(image(v.Thumbnail, v.Title, "article-thumbnail"), "id", "article-thumbnail")
	}
	return elem(atom.Article, "blog-article",
		setAttr(link(back, "back-link", text("<- Back to list")), "id", "back-to-list"),
		header,
		thumb,
		body,
	), nil
}

// PostList renders the cards for a list of posts.
func PostList(views []PostView, detail func(id int) string) []*html.Node {
	out := make([]*html.Node, len(views))
	for i, v := range views {
		out[i] = v.Card(detail(v.ID))
	}
	return out
}
