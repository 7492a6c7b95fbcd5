package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alpacapps/spaces/internal/config"
)

func TestSecurityHeaders_NonceAndStorageEndpoint(t *testing.T) {
	cfg := &config.Config{AppEnv: "production", S3Endpoint: "https://files.example.com"}
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		Config(cfg),
		NonceMiddleware,
		SecurityHeaders,
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/media", nil))

	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "'nonce-")
	assert.Contains(t, csp, "img-src 'self' data: blob: https://*.amazonaws.com https://files.example.com")
	assert.Contains(t, csp, scriptCDN)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_NoHSTSInDevelopment(t *testing.T) {
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		Config(&config.Config{AppEnv: "development"}),
		SecurityHeaders,
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	assert.NotContains(t, rec.Header().Get("Content-Security-Policy"), "nonce")
}
