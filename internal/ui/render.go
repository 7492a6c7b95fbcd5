package ui

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
)

func Render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	err := c.Render(r.Context(), w)
	if err != nil {
		slog.Error("render failed", "error", err, "path", r.URL.Path)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// RenderOOB wraps c in an out-of-band swap so HTMX places it at target
// regardless of the request's own hx-target.
func RenderOOB(w http.ResponseWriter, r *http.Request, c templ.Component, target string) {
	if _, err := fmt.Fprintf(w, `<div hx-swap-oob="%s">`, templ.EscapeString(target)); err != nil {
		slog.Error("render oob wrapper failed", "error", err)
		return
	}
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render oob component failed", "error", err)
		return
	}
	if _, err := w.Write([]byte(`</div>`)); err != nil {
		slog.Error("render oob wrapper failed", "error", err)
	}
}

// IsHTMX reports whether r was issued by HTMX (boosted navigation excluded).
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-Boosted") != "true"
}

// Redirect sends the browser to url, using HX-Redirect for HTMX requests.
func Redirect(w http.ResponseWriter, r *http.Request, url string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
