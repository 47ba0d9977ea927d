package main

import (
	"net/http"
	"strings"

	"reply-overlay/internal/config"
)

// themeCookieMaxAge keeps the theme preference for a year
const themeCookieMaxAge = 365 * 24 * 60 * 60

// SetLaxCookie sets a preference cookie that survives cross-site top-level navigation.
func SetLaxCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   shouldSecureCookie(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// shouldSecureCookie reports whether the request arrived over HTTPS, directly or behind a proxy
func shouldSecureCookie(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// themeHandler stores the theme preference: /html/theme?set=dark
func themeHandler(w http.ResponseWriter, r *http.Request) {
	theme := r.URL.Query().Get("set")
	if theme != config.ThemeLight && theme != config.ThemeDark {
		http.Error(w, "theme must be light or dark", http.StatusBadRequest)
		return
	}
	SetLaxCookie(w, r, config.ThemeCookie, theme, themeCookieMaxAge)
	w.WriteHeader(http.StatusNoContent)
}
