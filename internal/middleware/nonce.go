package middleware

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
)

const nonceBytes = 16

// NonceMiddleware stores a per-request CSP nonce with templ.WithNonce.
// The layout stamps it on script tags and SecurityHeaders allows it.
func NonceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, nonceBytes)
		if _, err := rand.Read(b); err != nil {
			// Scripts are blocked without a nonce; the page still renders
			slog.Error("failed to generate csp nonce", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		ctx := templ.WithNonce(r.Context(), base64.StdEncoding.EncodeToString(b))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
