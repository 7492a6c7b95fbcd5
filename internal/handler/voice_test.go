package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacapps/spaces/internal/db/dbtest"
	"github.com/alpacapps/spaces/internal/markdown"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
	"github.com/alpacapps/spaces/internal/service"
	"github.com/alpacapps/spaces/internal/voice"
)

const testWebhookSecret = "voice-webhook-secret"

func newVoiceHandler(t *testing.T) (*VoiceHandler, *service.VoiceService) {
	t.Helper()
	database := dbtest.New(t)
	svc := service.NewVoiceService(
		repository.NewAssistantRepository(database),
		repository.NewCallRepository(database),
		voice.NewClient("http://unused", ""),
		markdown.New(),
		testWebhookSecret,
	)
	return NewVoiceHandler(svc, newViews(t), time.UTC), svc
}

func signedWebhook(t *testing.T, payload []byte) *http.Request {
	t.Helper()
	wh, err := standardwebhooks.NewWebhookRaw([]byte(testWebhookSecret))
	require.NoError(t, err)

	now := time.Now()
	sig, err := wh.Sign("msg_1", now, payload)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/webhooks/voice", bytes.NewReader(payload))
	r.Header.Set("webhook-id", "msg_1")
	r.Header.Set("webhook-timestamp", strconv.FormatInt(now.Unix(), 10))
	r.Header.Set("webhook-signature", sig)
	return r
}

func TestVoiceHandler_Webhook(t *testing.T) {
	h, svc := newVoiceHandler(t)
	report := []byte(`{"message":{"type":"end-of-call-report","summary":"Asked about parking.",
		"call":{"id":"call-1","startedAt":"2026-03-02T09:00:00Z","endedAt":"2026-03-02T09:02:30Z"}}}`)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{
			name:   "unsigned",
			req:    httptest.NewRequest(http.MethodPost, "/webhooks/voice", bytes.NewReader(report)),
			status: http.StatusUnauthorized,
		},
		{
			name:   "signed but not json",
			req:    signedWebhook(t, []byte(`not json`)),
			status: http.StatusBadRequest,
		},
		{
			name:   "report without call id",
			req:    signedWebhook(t, []byte(`{"message":{"type":"end-of-call-report","call":{}}}`)),
			status: http.StatusBadRequest,
		},
		{
			name:   "other event types are acknowledged",
			req:    signedWebhook(t, []byte(`{"message":{"type":"status-update","call":{"id":"call-1"}}}`)),
			status: http.StatusNoContent,
		},
		{
			name:   "end of call report",
			req:    signedWebhook(t, report),
			status: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Webhook(rec, tt.req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	page, err := svc.Calls(model.CallFilter{Search: "parking"})
	require.NoError(t, err)
	require.Len(t, page.Calls, 1)
	assert.Equal(t, 150, page.Calls[0].DurationSeconds)
}

func TestVoiceHandler_SaveAndCallFilter(t *testing.T) {
	h, svc := newVoiceHandler(t)
	admin := &model.User{ID: "u1", Email: "ada@example.com", Role: model.RoleAdmin}

	rec := httptest.NewRecorder()
	h.Save(rec, htmxRequest(http.MethodPost, "/admin/voice", formValues(
		"name", "Front desk", "temperature", "warm",
	), admin))
	assertToastError(t, rec, "Temperature")

	rec = httptest.NewRecorder()
	h.Save(rec, htmxRequest(http.MethodPost, "/admin/voice", formValues(
		"name", "Front desk", "temperature", "0.4", "system_prompt", "Greet callers.",
	), admin))
	assertToastSuccess(t, rec, "Front desk saved")

	list, err := svc.Assistants()
	require.NoError(t, err)
	require.Len(t, list, 1)

	view := h.callFilter(httptest.NewRequest(http.MethodGet, "/admin/voice/calls?from=2026-03-01&to=2026-03-02&assistant="+list[0].ID, nil))
	require.NotNil(t, view.Filter.From)
	require.NotNil(t, view.Filter.To)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), *view.Filter.To)
	assert.Equal(t, list[0].ID, view.Filter.AssistantID)

	view = h.callFilter(httptest.NewRequest(http.MethodGet, "/admin/voice/calls?from=yesterday", nil))
	assert.Nil(t, view.Filter.From)
}
