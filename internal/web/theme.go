package web

import (
	"net/http"
	"strings"
	"time"
)

const (
	themeCookie = "theme"
	themeLight  = "light"
	themeDark   = "dark"
	themeHint   = "Sec-CH-Prefers-Color-Scheme"
)

// themeOf returns the saved theme, else the client's colour scheme hint,
// else light.
func themeOf(r *http.Request) string {
	if c, err := r.Cookie(themeCookie); err == nil {
		switch c.Value {
		case themeLight, themeDark:
			return c.Value
		}
	}
	if strings.EqualFold(strings.Trim(r.Header.Get(themeHint), `"`), themeDark) {
		return themeDark
	}
	return themeLight
}

func (s *server) handleTheme(w http.ResponseWriter, r *http.Request) {
	next := themeLight
	if themeOf(r) == themeLight {
		next = themeDark
	}
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    next,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
	})
	http.Redirect(w, r, localPath(r.FormValue("return")), http.StatusSeeOther)
}

// localPath keeps redirects on this site.
func localPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}
