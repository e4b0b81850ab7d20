// Package router maps a page's query string to a list or detail view and
// computes the page metadata for it.
package router

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kalambet/folio/internal/content"
)

// ParamID is the query parameter that selects a single item.
const ParamID = "id"

type State int

const (
	List State = iota
	Detail
)

func (s State) String() string {
	if s == Detail {
		return "detail"
	}
	return "list"
}

// Meta is the page title and discoverability metadata.
type Meta struct {
	Title       string
	Description string
	Keywords    []string
}

// KeywordList joins keywords for a meta tag.
func (m Meta) KeywordList() string {
	return strings.Join(m.Keywords, ", ")
}

// PageMeta configures metadata for one page. TitleFormat takes the item's
// display title; BaseKeywords are merged with the item's tags.
type PageMeta struct {
	Default      Meta
	TitleFormat  string
	BaseKeywords []string
}

// Route is the resolved view. Replace is non-empty when the request named an
// item that does not exist: the caller should replace the current location
// with it rather than add a history entry.
type Route struct {
	State   State
	Item    content.Item
	Meta    Meta
	Replace string
}

// Resolve evaluates the id parameter against items. It must be called with
// the loaded items; an id that does not parse or does not match falls back to
// the list.
func Resolve(items []content.Item, path string, query url.Values, pm PageMeta) Route {
	raw, present := query[ParamID]
	if !present {
		return Route{State: List, Meta: pm.Default}
	}

	if len(raw) == 1 {
		if id, err := strconv.Atoi(strings.TrimSpace(raw[0])); err == nil {
			if it, ok := content.FindByID(items, id); ok {
				return Route{State: Detail, Item: it, Meta: DetailMeta(it, pm)}
			}
		}
	}

	return Route{State: List, Meta: pm.Default, Replace: Without(path, query, ParamID)}
}

// DetailMeta derives the metadata for a single item.
func DetailMeta(it content.Item, pm PageMeta) Meta {
	format := pm.TitleFormat
	if format == "" {
		format = "%s"
	}
	desc := it.Summary
	if desc == "" {
		desc = pm.Default.Description
	}
	return Meta{
		Title:       fmt.Sprintf(format, it.DisplayTitle()),
		Description: desc,
		Keywords:    MergeKeywords(pm.BaseKeywords, it.Tags),
	}
}

// MergeKeywords returns base followed by tags, dropping duplicates and
// blanks while keeping first-seen order.
func MergeKeywords(base, tags []string) []string {
	seen := make(map[string]bool, len(base)+len(tags))
	out := make([]string, 0, len(base)+len(tags))
	for _, list := range [][]string{base, tags} {
		for _, k := range list {
			k = strings.TrimSpace(k)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Without returns path with query minus the named parameters.
func Without(path string, query url.Values, drop ...string) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	for _, k := range drop {
		q.Del(k)
	}
	return With(path, q)
}

// With encodes query onto path. Keys are sorted by url.Values.Encode.
func With(path string, query url.Values) string {
	if enc := query.Encode(); enc != "" {
		return path + "?" + enc
	}
	return path
}

// DetailURL links to a single item, keeping the other parameters.
func DetailURL(path string, query url.Values, id int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	q.Set(ParamID, strconv.Itoa(id))
	return With(path, q)
}

// ListURL links back to the list view.
func ListURL(path string, query url.Values) string {
	return Without(path, query, ParamID)
}
