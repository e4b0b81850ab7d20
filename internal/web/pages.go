package web

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/content"
	"github.com/kalambet/folio/internal/render"
	"github.com/kalambet/folio/internal/router"
	"github.com/kalambet/folio/internal/storage"
)

// paramOpen holds the expanded work card.
const paramOpen = "open"

const (
	visitsCookie = "visits"
	// visitsBase offsets the per-visitor count shown when the shared counter
	// is unavailable.
	visitsBase = 4096
)

type homePage struct {
	page
	Visits int64
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	data := homePage{page: s.newPage(r, config.PageHome, s.pageMeta(config.PageHome).Default)}
	n, err := s.countVisit()
	if err != nil {
		s.logger.Warn("incrementing visit counter", "error", err)
		n = localVisits(w, r)
	}
	data.Visits = n
	s.render(w, http.StatusOK, "home.html", data)
}

func (s *server) countVisit() (int64, error) {
	if s.deps.Counter == nil {
		return 0, errors.New("no visit counter configured")
	}
	return s.deps.Counter.IncrementCounter(storage.VisitsCounter)
}

// localVisits counts this visitor's page loads in a cookie.
func localVisits(w http.ResponseWriter, r *http.Request) int64 {
	var n int64
	if c, err := r.Cookie(visitsCookie); err == nil {
		n, _ = strconv.ParseInt(c.Value, 10, 64)
	}
	n = max(n, 0) + 1
	http.SetCookie(w, &http.Cookie{
		Name:     visitsCookie,
		Value:    strconv.FormatInt(n, 10),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
	})
	return visitsBase + n
}

// loadError is shown in a page's list region when its document could not
// be loaded. The rest of the page still renders.
type loadError struct {
	Message string
	Hint    string
	Detail  string
}

type option struct {
	Label  string
	Href   string
	Active bool
}

type worksPage struct {
	page
	Error   *loadError
	Filters []option
	Sorts   []option
	Detail  bool
	Back    string
	Cards   template.HTML
	Empty   bool
}

var sortLabels = map[content.SortKey]string{
	content.SortDateDesc:     "Newest",
	content.SortDateAsc:      "Oldest",
	content.SortProgressDesc: "Most progress",
	content.SortProgressAsc:  "Least progress",
}

func (s *server) handleWorks(w http.ResponseWriter, r *http.Request) {
	pm := s.pageMeta(config.PageWorks)
	data := worksPage{page: s.newPage(r, config.PageWorks, pm.Default)}

	items, err := s.deps.Content.Load(r.Context(), content.KindWorks)
	if err != nil {
		s.logger.Error("loading works", "error", err)
		data.Error = &loadError{
			Message: "Failed to load projects.",
			Hint:    "Please check if data/works-data.json exists and is valid JSON.",
			Detail:  err.Error(),
		}
		s.render(w, http.StatusOK, "works.html", data)
		return
	}

	q := r.URL.Query()
	route := router.Resolve(items, r.URL.Path, q, pm)
	if route.Replace != "" {
		http.Redirect(w, r, route.Replace, http.StatusFound)
		return
	}
	data.Meta = route.Meta

	filter := q.Get("filter")
	if filter == "" {
		filter = content.FilterAll
	}
	key, err := content.ParseSortKey(q.Get("sort"))
	if err != nil {
		key = content.SortDateDesc
	}

	var views []render.WorkView
	if route.State == router.Detail {
		data.Detail = true
		data.Back = router.ListURL(r.URL.Path, q)
		views = []render.WorkView{render.NewWorkView(route.Item, render.OpenOn(route.Item.ID))}
	} else {
		acc := accordionOf(q)
		views = render.WorkViews(content.Project(items, filter, key), acc)
		data.Filters = filterOptions(r.URL.Path, q, items, filter)
		data.Sorts = sortOptions(r.URL.Path, q, key)
	}

	cards, err := render.WorkList(views, workHrefs(r.URL.Path, q, accordionOf(q)))
	if err != nil {
		s.logger.Error("rendering works", "error", err)
		data.Error = &loadError{Message: "Failed to render projects.", Detail: err.Error()}
		s.render(w, http.StatusOK, "works.html", data)
		return
	}
	data.Cards, err = render.HTMLAll(cards)
	if err != nil {
		s.logger.Error("serialising works", "error", err)
		data.Error = &loadError{Message: "Failed to render projects.", Detail: err.Error()}
	}
	data.Empty = len(views) == 0
	s.render(w, http.StatusOK, "works.html", data)
}

func accordionOf(q url.Values) render.Accordion {
	id, err := strconv.Atoi(q.Get(paramOpen))
	if err != nil {
		return render.Accordion{}
	}
	return render.OpenOn(id)
}

// workHrefs links card headers to the accordion state after a toggle and
// permalinks to the detail view.
func workHrefs(path string, q url.Values, acc render.Accordion) render.Hrefs {
	return render.Hrefs{
		Toggle: func(id int) string {
			next := url.Values{}
			for k, v := range q {
				next[k] = v
			}
			if cur, ok := acc.Toggle(id).Current(); ok {
				next.Set(paramOpen, strconv.Itoa(cur))
			} else {
				next.Del(paramOpen)
			}
			next.Del(router.ParamID)
			return router.With(path, next) + "#work-" + strconv.Itoa(id)
		},
		Detail: func(id int) string {
			return router.DetailURL(path, url.Values{}, id)
		},
	}
}

func filterOptions(path string, q url.Values, items []content.Item, active string) []option {
	values := append([]string{content.FilterAll}, content.Statuses(items)...)
	out := make([]option, 0, len(values))
	for _, v := range values {
		next := url.Values{}
		for k, vv := range q {
			next[k] = vv
		}
		next.Del(paramOpen)
		if v == content.FilterAll {
			next.Del("filter")
		} else {
			next.Set("filter", v)
		}
		label := "All"
		if v != content.FilterAll {
			label = render.StatusLabel(v)
		}
		out = append(out, option{Label: label, Href: router.With(path, next), Active: v == active})
	}
	return out
}

func sortOptions(path string, q url.Values, active content.SortKey) []option {
	out := make([]option, 0, len(content.SortKeys))
	for _, k := range content.SortKeys {
		next := url.Values{}
		for kk, v := range q {
			next[kk] = v
		}
		next.Set("sort", string(k))
		out = append(out, option{Label: sortLabels[k], Href: router.With(path, next), Active: k == active})
	}
	return out
}

type blogPage struct {
	page
	Error   *loadError
	Detail  bool
	Article template.HTML
	Cards   template.HTML
	Empty   bool
}

func (s *server) handleBlog(w http.ResponseWriter, r *http.Request) {
	pm := s.pageMeta(config.PageBlog)
	data := blogPage{page: s.newPage(r, config.PageBlog, pm.Default)}

	items, err := s.deps.Content.Load(r.Context(), content.KindBlog)
	if err != nil {
		s.logger.Error("loading blog", "error", err)
		data.Error = &loadError{
			Message: "Failed to load blog posts.",
			Hint:    "Please check if data/blog-data.json exists and is valid JSON.",
			Detail:  err.Error(),
		}
		s.render(w, http.StatusOK, "blog.html", data)
		return
	}

	q := r.URL.Query()
	route := router.Resolve(items, r.URL.Path, q, pm)
	if route.Replace != "" {
		http.Redirect(w, r, route.Replace, http.StatusFound)
		return
	}
	data.Meta = route.Meta

	if route.State == router.Detail {
		data.Detail = true
		article, err := render.NewPostView(route.Item, 0).Article(router.ListURL(r.URL.Path, q))
		if err == nil {
			data.Article, err = render.HTML(article)
		}
		if err != nil {
			s.logger.Error("rendering post", "id", route.Item.ID, "error", err)
			data.Error = &loadError{Message: "Failed to render post.", Detail: err.Error()}
		}
		s.render(w, http.StatusOK, "blog.html", data)
		return
	}

	views := render.PostViews(content.Project(items, content.FilterAll, content.SortDateDesc))
	cards := render.PostList(views, func(id int) string {
		return router.DetailURL(r.URL.Path, q, id)
	})
	data.Cards, err = render.HTMLAll(cards)
	if err != nil {
		s.logger.Error("serialising blog", "error", err)
		data.Error = &loadError{Message: "Failed to render blog posts.", Detail: err.Error()}
	}
	data.Empty = len(views) == 0
	s.render(w, http.StatusOK, "blog.html", data)
}
