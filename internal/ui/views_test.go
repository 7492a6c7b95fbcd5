package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacapps/spaces/internal/ctxkeys"
	"github.com/alpacapps/spaces/internal/markdown"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/timefmt"
)

func newTestViews(t *testing.T) *Views {
	t.Helper()
	v, err := NewViews(timefmt.New(time.UTC), markdown.New())
	require.NoError(t, err)
	return v
}

func TestNewViews_ParsesEveryPage(t *testing.T) {
	v := newTestViews(t)

	for _, page := range []string{"auth", "invite", "users", "vault", "vault_grouped", "media", "imagery", "voice", "calls", "call", "appdev", "error"} {
		set, ok := v.pages[page]
		require.True(t, ok, page)
		assert.NotNil(t, set.Lookup("layout"), page)
		assert.NotNil(t, set.Lookup("content"), page)
	}
	assert.NotContains(t, v.pages, "_layout")
}

func TestViews_PageFullAndHTMX(t *testing.T) {
	v := newTestViews(t)
	user := &model.User{ID: "u1", Email: "ada@example.com", Role: model.RoleStaff}

	r := httptest.NewRequest(http.MethodGet, "/admin/imagery", nil)
	r = r.WithContext(ctxkeys.WithCSRFToken(ctxkeys.WithUser(r.Context(), user), "tok"))
	rec := httptest.NewRecorder()
	v.Page(rec, r, "error", "Oops", struct {
		Status  int
		Message string
	}{418, "Short and stout"})

	body := rec.Body.String()
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, `content="tok"`)
	assert.Contains(t, body, "Short and stout")
	assert.Contains(t, body, `href="/admin/media"`)
	assert.NotContains(t, body, `href="/admin/users"`, "staff nav hides admin pages")

	r.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	v.Page(rec, r, "error", "Oops", struct {
		Status  int
		Message string
	}{418, "Short and stout"})
	assert.NotContains(t, rec.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, rec.Body.String(), `id="page"`)
}

func TestViews_Error(t *testing.T) {
	v := newTestViews(t)

	rec := httptest.NewRecorder()
	v.Error(rec, httptest.NewRequest(http.MethodGet, "/nope", nil), http.StatusNotFound, "Page not found")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")

	r := httptest.NewRequest(http.MethodGet, "/nope", nil)
	r.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	v.Error(rec, r, http.StatusNotFound, "Page not found")
	assert.Contains(t, rec.Body.String(), `hx-swap-oob="beforeend:#toast-container"`)
	assert.Contains(t, rec.Body.String(), `data-variant="error"`)
}

func TestViews_UnknownBlock(t *testing.T) {
	v := newTestViews(t)
	rec := httptest.NewRecorder()

	v.Partial(rec, httptest.NewRequest(http.MethodGet, "/", nil), "vault", "missing_block", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDict(t *testing.T) {
	m, err := dict("Entry", 1, "Base", "/admin/passwords")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Entry": 1, "Base": "/admin/passwords"}, m)

	_, err = dict("odd")
	assert.Error(t, err)
	_, err = dict(1, 2)
	assert.Error(t, err)
}

func TestBadgeClasses(t *testing.T) {
	assert.Contains(t, statusClass(model.RequestBuilding), "animate-pulse")
	assert.Contains(t, statusClass(model.RequestFailed), "bg-red-100")
	assert.NotContains(t, statusClass(model.RequestFailed), "bg-slate-100")
	assert.Equal(t, badgeBase, statusClass("unknown"))
	assert.Contains(t, riskClass(model.RiskHigh), "bg-red-600")
}
