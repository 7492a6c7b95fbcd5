package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacapps/spaces/internal/db/dbtest"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
	"github.com/alpacapps/spaces/internal/risk"
	"github.com/alpacapps/spaces/internal/service"
	"github.com/alpacapps/spaces/internal/storage/storagetest"
)

func newAppDevHandler(t *testing.T, database *sqlx.DB) (*AppDevHandler, *service.FeatureRequestService) {
	t.Helper()
	svc := service.NewFeatureRequestService(
		repository.NewFeatureRequestRepository(database),
		storagetest.NewMemory(),
		risk.Heuristic{},
		true,
		5*time.Second,
		30*time.Second,
	)
	return NewAppDevHandler(svc, newViews(t)), svc
}

func countRequests(t *testing.T, database *sqlx.DB) int {
	t.Helper()
	var n int
	require.NoError(t, database.Get(&n, `SELECT COUNT(*) FROM feature_requests`))
	return n
}

func TestAppDevHandler_Submit(t *testing.T) {
	database := dbtest.New(t)
	h, _ := newAppDevHandler(t, database)
	admin := seedUser(t, database, "ada@example.com", model.RoleAdmin)

	t.Run("short description is rejected without saving", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Submit(rec, htmxRequest(http.MethodPost, "/admin/appdev", url.Values{"description": {"  fix it  "}}, admin))

		assertToastError(t, rec, "Description must be at least 10 characters")
		assert.Zero(t, countRequests(t, database))
	})

	t.Run("valid description creates a pending request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Submit(rec, htmxRequest(http.MethodPost, "/admin/appdev", url.Values{
			"description": {"Add a dark mode toggle to the media page"},
		}, admin))

		assertToastSuccess(t, rec, "Request submitted")
		assert.Contains(t, rec.Body.String(), `id="request-status"`)
		assert.Contains(t, rec.Body.String(), "Add a dark mode toggle")
		assert.Equal(t, 1, countRequests(t, database))
	})

	t.Run("unknown parent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Submit(rec, htmxRequest(http.MethodPost, "/admin/appdev", url.Values{
			"description": {"Follow up on the dark mode toggle"},
			"parent_id":   {"missing"},
		}, admin))

		assertToastError(t, rec, "Parent request not found")
		assert.Equal(t, 1, countRequests(t, database))
	})
}

func TestAppDevHandler_StatusFragmentCarriesPollInterval(t *testing.T) {
	database := dbtest.New(t)
	h, svc := newAppDevHandler(t, database)
	admin := seedUser(t, database, "ada@example.com", model.RoleAdmin)

	req, err := svc.Submit(context.Background(), admin, service.SubmitInput{Description: "Show call costs per assistant"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Status(rec, htmxRequest(http.MethodGet, "/admin/appdev/status", nil, admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hx-trigger="every 30s"`)
	assert.NotContains(t, rec.Body.String(), "<html")

	_, err = svc.UpdateStatus(req.ID, service.StatusUpdate{Status: model.RequestProcessing})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	h.Status(rec, htmxRequest(http.MethodGet, "/admin/appdev/status", nil, admin))
	assert.Contains(t, rec.Body.String(), `hx-trigger="every 5s"`)

	rec = httptest.NewRecorder()
	h.Status(rec, htmxRequest(http.MethodGet, "/admin/appdev/status?status=bogus", nil, admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppDevHandler_CancelOnlyPending(t *testing.T) {
	database := dbtest.New(t)
	h, svc := newAppDevHandler(t, database)
	admin := seedUser(t, database, "ada@example.com", model.RoleAdmin)

	req, err := svc.Submit(context.Background(), admin, service.SubmitInput{Description: "Export the vault as CSV"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Cancel(rec, htmxRequest(http.MethodPost, "/admin/appdev/"+req.ID+"/cancel", nil, admin, "id", req.ID))
	assertToastSuccess(t, rec, "Request cancelled")

	rec = httptest.NewRecorder()
	h.Cancel(rec, htmxRequest(http.MethodPost, "/admin/appdev/"+req.ID+"/cancel", nil, admin, "id", req.ID))
	assertToastError(t, rec, "Only pending requests can be cancelled")
}

func TestAppDevHandler_UpdateStatusAPI(t *testing.T) {
	database := dbtest.New(t)
	h, svc := newAppDevHandler(t, database)
	admin := seedUser(t, database, "ada@example.com", model.RoleAdmin)

	req, err := svc.Submit(context.Background(), admin, service.SubmitInput{Description: "Add tags to voice calls"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		id     string
		body   string
		status int
	}{
		{"malformed body", req.ID, `{`, http.StatusBadRequest},
		{"unknown request", "missing", `{"status":"processing"}`, http.StatusNotFound},
		{"unknown status", req.ID, `{"status":"shipped"}`, http.StatusUnprocessableEntity},
		{"skipped step", req.ID, `{"status":"completed"}`, http.StatusConflict},
		{"valid step", req.ID, `{"status":"processing","message":"Picked up by worker"}`, http.StatusOK},
		{"branch reported", req.ID, `{"status":"building","build_branch":"appdev/tags"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/feature-requests/"+tt.id+"/status", strings.NewReader(tt.body))
			r.SetPathValue("id", tt.id)
			rec := httptest.NewRecorder()

			h.UpdateStatus(rec, r)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}

	got, err := svc.ByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestBuilding, got.Status)
	assert.Equal(t, "appdev/tags", got.BuildBranch)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/feature-requests/"+req.ID+"/status", strings.NewReader(`{"status":"review","preview_url":"https://preview.example.com"}`))
	r.SetPathValue("id", req.ID)
	h.UpdateStatus(rec, r)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "review", body["status"])
	assert.Equal(t, "https://preview.example.com", body["preview_url"])
}
