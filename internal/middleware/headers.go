package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/alpacapps/spaces/internal/ctxkeys"
)

const scriptCDN = "https://unpkg.com"

// SecurityHeaders sets CSP and the usual hardening headers. Media is served
// straight from object storage, so its endpoint is allowed for images.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy(r))
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

		if cfg := ctxkeys.Config(r.Context()); cfg != nil && cfg.IsProduction() {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func contentSecurityPolicy(r *http.Request) string {
	scriptSrc := []string{"'self'", scriptCDN}
	if nonce := templ.GetNonce(r.Context()); nonce != "" {
		scriptSrc = append(scriptSrc, fmt.Sprintf("'nonce-%s'", nonce))
	}

	imgSrc := []string{"'self'", "data:", "blob:", "https://*.amazonaws.com"}
	mediaSrc := []string{"'self'", "https:"}
	if cfg := ctxkeys.Config(r.Context()); cfg != nil && cfg.S3Endpoint != "" {
		imgSrc = append(imgSrc, cfg.S3Endpoint)
	}

	directives := []string{
		"default-src 'self'",
		"script-src " + strings.Join(scriptSrc, " "),
		"style-src 'self' 'unsafe-inline'",
		"img-src " + strings.Join(imgSrc, " "),
		"media-src " + strings.Join(mediaSrc, " "),
		"connect-src 'self'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}
	return strings.Join(directives, "; ")
}
