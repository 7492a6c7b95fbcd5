package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacapps/spaces/internal/ctxkeys"
)

func csrfHandler(seen *string) http.Handler {
	return CSRFProtection(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = ctxkeys.CSRFToken(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFProtection_IssuesTokenOnGet(t *testing.T) {
	var seen string
	rec := httptest.NewRecorder()
	csrfHandler(&seen).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, csrfCookieName, cookies[0].Name)
	assert.Equal(t, cookies[0].Value, seen)
}

func TestCSRFProtection_Post(t *testing.T) {
	token := generateCSRFToken()

	tests := []struct {
		name   string
		header string
		field  string
		status int
	}{
		{name: "header", header: token, status: http.StatusOK},
		{name: "form field", field: token, status: http.StatusOK},
		{name: "missing", status: http.StatusForbidden},
		{name: "mismatch", header: generateCSRFToken(), status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.field != "" {
				form.Set(csrfFormField, tt.field)
			}
			req := httptest.NewRequest(http.MethodPost, "/admin/passwords", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
			if tt.header != "" {
				req.Header.Set(csrfHeader, tt.header)
			}

			var seen string
			rec := httptest.NewRecorder()
			csrfHandler(&seen).ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestCSRFProtection_SkipsMachineEndpoints(t *testing.T) {
	for _, path := range []string{"/webhooks/voice", "/api/feature-requests/r1/status"} {
		var seen string
		rec := httptest.NewRecorder()
		csrfHandler(&seen).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Empty(t, rec.Result().Cookies(), path)
	}
}
