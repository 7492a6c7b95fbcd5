package middleware

import (
	"net/http"
	"strings"

	"github.com/alpacapps/spaces/internal/ctxkeys"
)

// navSections are the nav targets. Longer paths come first so a call
// detail page lights up "Calls" rather than "Voice".
var navSections = []string{
	"/admin/passwords-alt",
	"/admin/voice/calls",
	"/admin/passwords",
	"/admin/imagery",
	"/admin/appdev",
	"/admin/users",
	"/admin/media",
	"/admin/voice",
}

// WithNavSection records which nav entry the request belongs to.
func WithNavSection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(ctxkeys.WithNavSection(r.Context(), navSection(r.URL.Path))))
	})
}

func navSection(path string) string {
	for _, s := range navSections {
		if path == s || strings.HasPrefix(path, s+"/") {
			return s
		}
	}
	return path
}
