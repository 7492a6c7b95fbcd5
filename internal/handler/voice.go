package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
	"github.com/alpacapps/spaces/internal/service"
	"github.com/alpacapps/spaces/internal/ui"
	"github.com/alpacapps/spaces/internal/voice"
)

const (
	maxPromptSize   = 1 << 20
	maxWebhookSize  = 2 << 20
	defaultSyncDays = 7
	dateLayout      = "2006-01-02"
)

var errPromptTooLarge = errors.New("prompt files are limited to 1 MB")

type voiceView struct {
	Assistants []*model.VoiceAssistant
	Edit       *model.VoiceAssistant
	Configured bool
}

type callsView struct {
	Page   *service.CallPage
	Filter model.CallFilter
	From   string
	To     string
}

type VoiceHandler struct {
	voiceService *service.VoiceService
	views        *ui.Views
	loc          *time.Location
}

func NewVoiceHandler(voiceService *service.VoiceService, views *ui.Views, loc *time.Location) *VoiceHandler {
	return &VoiceHandler{voiceService: voiceService, views: views, loc: loc}
}

func (h *VoiceHandler) render(w http.ResponseWriter, r *http.Request, edit *model.VoiceAssistant) {
	assistants, err := h.voiceService.Assistants()
	if err != nil {
		slog.Error("failed to load assistants", "error", err)
		h.views.Error(w, r, http.StatusInternalServerError, "Failed to load assistants")
		return
	}
	h.views.Page(w, r, "voice", "Voice assistants", voiceView{
		Assistants: assistants,
		Edit:       edit,
		Configured: h.voiceService.Configured(),
	})
}

func (h *VoiceHandler) AssistantsPage(w http.ResponseWriter, r *http.Request) {
	var edit *model.VoiceAssistant
	if id := r.URL.Query().Get("edit"); id != "" {
		a, err := h.voiceService.Assistant(id)
		if err != nil && !errors.Is(err, repository.ErrAssistantNotFound) {
			slog.Error("failed to load assistant", "error", err, "assistant_id", id)
		}
		edit = a
	}
	h.render(w, r, edit)
}

func (h *VoiceHandler) Save(w http.ResponseWriter, r *http.Request) {
	temperature, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("temperature")), 64)
	if err != nil {
		fail(w, r, "save assistant", service.ErrInvalidTemperature)
		return
	}

	a, err := h.voiceService.SaveAssistant(service.AssistantInput{
		ID:            r.FormValue("id"),
		Name:          r.FormValue("name"),
		ModelProvider: r.FormValue("model_provider"),
		Model:         r.FormValue("model"),
		VoiceProvider: r.FormValue("voice_provider"),
		VoiceID:       r.FormValue("voice_id"),
		SystemPrompt:  r.FormValue("system_prompt"),
		FirstMessage:  r.FormValue("first_message"),
		Temperature:   temperature,
	})
	if err != nil {
		fail(w, r, "save assistant", err)
		return
	}
	ui.ToastSuccess(w, r, a.Name+" saved")
	h.render(w, r, nil)
}

func (h *VoiceHandler) Import(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("prompt")
	if err != nil {
		toastError(w, r, "Choose a prompt file to import")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > maxPromptSize {
		fail(w, r, "import prompt", errPromptTooLarge)
		return
	}
	source, err := io.ReadAll(io.LimitReader(file, maxPromptSize))
	if err != nil {
		fail(w, r, "import prompt", err)
		return
	}

	a, err := h.voiceService.ImportPrompt(source)
	if err != nil {
		fail(w, r, "import prompt", err, "filename", header.Filename)
		return
	}
	ui.ToastSuccess(w, r, "Imported "+a.Name)
	h.render(w, r, a)
}

func (h *VoiceHandler) Activate(w http.ResponseWriter, r *http.Request) {
	a, err := h.voiceService.Activate(r.PathValue("id"))
	if err != nil {
		fail(w, r, "activate assistant", err, "assistant_id", r.PathValue("id"))
		return
	}
	state := "deactivated"
	if a.IsActive {
		state = "activated"
	}
	ui.ToastSuccess(w, r, a.Name+" "+state)
	h.render(w, r, nil)
}

func (h *VoiceHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	if err := h.voiceService.SetDefault(r.PathValue("id")); err != nil {
		fail(w, r, "set default assistant", err, "assistant_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, "Default assistant updated")
	h.render(w, r, nil)
}

func (h *VoiceHandler) Push(w http.ResponseWriter, r *http.Request) {
	a, err := h.voiceService.Push(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, "push assistant", err, "assistant_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, a.Name+" pushed to the voice provider")
	h.render(w, r, nil)
}

func (h *VoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.voiceService.DeleteAssistant(r.PathValue("id")); err != nil {
		fail(w, r, "delete assistant", err, "assistant_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, "Assistant deleted")
	h.render(w, r, nil)
}

// callFilter reads the call-log filters. Dates are whole days in the
// property timezone; To includes the whole day.
func (h *VoiceHandler) callFilter(r *http.Request) callsView {
	q := r.URL.Query()
	view := callsView{
		Filter: model.CallFilter{
			AssistantID: q.Get("assistant"),
			Search:      strings.TrimSpace(q.Get("q")),
		},
	}
	if from, err := time.ParseInLocation(dateLayout, q.Get("from"), h.loc); err == nil {
		view.Filter.From = &from
		view.From = q.Get("from")
	}
	if to, err := time.ParseInLocation(dateLayout, q.Get("to"), h.loc); err == nil {
		end := to.AddDate(0, 0, 1)
		view.Filter.To = &end
		view.To = q.Get("to")
	}
	return view
}

func (h *VoiceHandler) renderCalls(w http.ResponseWriter, r *http.Request) {
	view := h.callFilter(r)
	page, err := h.voiceService.Calls(view.Filter)
	if err != nil {
		slog.Error("failed to load calls", "error", err)
		h.views.Error(w, r, http.StatusInternalServerError, "Failed to load calls")
		return
	}
	view.Page = page
	h.views.Page(w, r, "calls", "Call log", view)
}

func (h *VoiceHandler) CallsPage(w http.ResponseWriter, r *http.Request) {
	h.renderCalls(w, r)
}

// SyncCalls pulls recent calls from the provider, from the filter's start
// date or the last week.
func (h *VoiceHandler) SyncCalls(w http.ResponseWriter, r *http.Request) {
	since := time.Now().AddDate(0, 0, -defaultSyncDays)
	if f := h.callFilter(r).Filter.From; f != nil {
		since = *f
	}

	n, err := h.voiceService.SyncCalls(r.Context(), since)
	if err != nil {
		fail(w, r, "sync calls", err)
		return
	}
	ui.ToastSuccess(w, r, fmt.Sprintf("Synced %d calls", n))
	h.renderCalls(w, r)
}

func (h *VoiceHandler) CallPage(w http.ResponseWriter, r *http.Request) {
	detail, err := h.voiceService.Call(r.PathValue("id"))
	if errors.Is(err, repository.ErrCallNotFound) {
		h.views.Error(w, r, http.StatusNotFound, "Call not found")
		return
	}
	if err != nil {
		slog.Error("failed to load call", "error", err, "call_id", r.PathValue("id"))
		h.views.Error(w, r, http.StatusInternalServerError, "Failed to load call")
		return
	}
	h.views.Page(w, r, "call", "Call", detail)
}

// Webhook receives provider server messages. Bad signatures get 401 and
// malformed bodies 400 so the provider stops retrying them.
func (h *VoiceHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookSize))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	err = h.voiceService.HandleWebhook(payload, r.Header)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrInvalidSignature):
		slog.Warn("voice webhook signature rejected", "error", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
	case errors.Is(err, voice.ErrMalformedEvent):
		slog.Warn("voice webhook malformed", "error", err)
		http.Error(w, "Malformed event", http.StatusBadRequest)
	default:
		slog.Error("voice webhook failed", "error", err)
		http.Error(w, "Webhook processing failed", http.StatusInternalServerError)
	}
}
