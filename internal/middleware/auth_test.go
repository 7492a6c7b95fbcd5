package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacapps/spaces/internal/ctxkeys"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/service"
)

type stubUsers map[string]*model.User

func (s stubUsers) ByID(id string) (*model.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *u
	return &copied, nil
}

func newSessions() *service.AuthService {
	return service.NewAuthService(nil, nil, nil, "test-secret", false, time.Hour, 15*time.Minute)
}

func TestAuthMiddleware_LoadsUserWithoutHash(t *testing.T) {
	sessions := newSessions()
	hash := "$2a$10$secret"
	admin := &model.User{ID: "u1", Email: "a@example.com", Role: model.RoleAdmin, PasswordHash: &hash}
	token, err := sessions.GenerateJWT(admin)
	require.NoError(t, err)

	var got *model.User
	h := AuthMiddleware(sessions, stubUsers{"u1": admin})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ctxkeys.User(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.AddCookie(&http.Cookie{Name: service.AuthCookieName, Value: token})
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ID)
	assert.Nil(t, got.PasswordHash)
}

func TestAuthMiddleware_ClearsCookieForDeletedUser(t *testing.T) {
	sessions := newSessions()
	token, err := sessions.GenerateJWT(&model.User{ID: "gone", Role: model.RoleStaff})
	require.NoError(t, err)

	called := false
	h := AuthMiddleware(sessions, stubUsers{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Nil(t, ctxkeys.User(r.Context()))
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: service.AuthCookieName, Value: token})
	h.ServeHTTP(rec, req)

	assert.True(t, called)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, service.AuthCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
}

func TestRequireRole(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }
	h := RequireRole(model.RoleAdmin)(ok)

	tests := []struct {
		name     string
		user     *model.User
		htmx     bool
		status   int
		location string
	}{
		{name: "anonymous redirects", status: http.StatusSeeOther, location: "/auth"},
		{name: "anonymous htmx redirects", htmx: true, status: http.StatusOK},
		{name: "wrong role", user: &model.User{ID: "s", Role: model.RoleStaff}, status: http.StatusForbidden},
		{name: "wrong role htmx toasts", user: &model.User{ID: "s", Role: model.RoleStaff}, htmx: true, status: http.StatusOK},
		{name: "admin passes", user: &model.User{ID: "a", Role: model.RoleAdmin}, status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tt.user != nil {
				req = req.WithContext(ctxkeys.WithUser(req.Context(), tt.user))
			}
			if tt.htmx {
				req.Header.Set("HX-Request", "true")
			}
			rec := httptest.NewRecorder()
			h(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, rec.Header().Get("Location"))
			}
			if tt.htmx && tt.user == nil {
				assert.Equal(t, "/auth", rec.Header().Get("HX-Redirect"))
			}
			if tt.htmx && tt.user != nil {
				assert.Equal(t, "none", rec.Header().Get("HX-Reswap"))
				assert.Contains(t, rec.Body.String(), "toast-container")
			}
		})
	}
}

func TestRequireGuest_RedirectsSignedIn(t *testing.T) {
	h := RequireGuest(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	req = req.WithContext(ctxkeys.WithUser(req.Context(), &model.User{ID: "a", Role: model.RoleAdmin}))
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
}

func TestRequireBearer(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	tests := []struct {
		name   string
		token  string
		header string
		status int
	}{
		{"valid", "s3cret", "Bearer s3cret", http.StatusOK},
		{"wrong token", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"unconfigured rejects all", "", "Bearer ", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/feature-requests/r1/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			RequireBearer(tt.token)(ok)(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
