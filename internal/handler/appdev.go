package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alpacapps/spaces/internal/ctxkeys"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
	"github.com/alpacapps/spaces/internal/service"
	"github.com/alpacapps/spaces/internal/ui"
	"github.com/alpacapps/spaces/internal/validation"
)

const maxStatusUpdateSize = 64 << 10

type appdevView struct {
	Console  *service.Console
	Status   string
	Statuses []string
}

type AppDevHandler struct {
	requestService *service.FeatureRequestService
	views          *ui.Views
}

func NewAppDevHandler(requestService *service.FeatureRequestService, views *ui.Views) *AppDevHandler {
	return &AppDevHandler{requestService: requestService, views: views}
}

func (h *AppDevHandler) load(status string) (appdevView, error) {
	console, err := h.requestService.Console(status)
	if err != nil {
		return appdevView{}, err
	}
	return appdevView{Console: console, Status: status, Statuses: model.RequestStatuses}, nil
}

func (h *AppDevHandler) render(w http.ResponseWriter, r *http.Request, status string) {
	view, err := h.load(status)
	if errors.Is(err, service.ErrInvalidStatus) {
		view, err = h.load("")
	}
	if err != nil {
		slog.Error("failed to load feature requests", "error", err)
		h.views.Error(w, r, http.StatusInternalServerError, "Failed to load feature requests")
		return
	}
	h.views.Page(w, r, "appdev", "Feature requests", view)
}

func (h *AppDevHandler) ConsolePage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, r.URL.Query().Get("status"))
}

// Status renders the polling fragment.
func (h *AppDevHandler) Status(w http.ResponseWriter, r *http.Request) {
	view, err := h.load(r.URL.Query().Get("status"))
	if errors.Is(err, service.ErrInvalidStatus) {
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("failed to poll feature requests", "error", err)
		http.Error(w, "Failed to load feature requests", http.StatusInternalServerError)
		return
	}
	h.views.Partial(w, r, "appdev", "request_status", view)
}

func (h *AppDevHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		toastError(w, r, "Could not read the request")
		return
	}

	input := service.SubmitInput{
		Description: r.FormValue("description"),
		ParentID:    r.FormValue("parent_id"),
	}
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["attachment"] {
			data, mimeType, err := readUpload(header, validation.AttachmentConstraints)
			if err != nil {
				fail(w, r, "attach file", err, "filename", header.Filename)
				return
			}
			input.Attachments = append(input.Attachments, service.AttachmentInput{
				Filename: header.Filename,
				MimeType: mimeType,
				Data:     data,
			})
		}
	}

	req, err := h.requestService.Submit(r.Context(), ctxkeys.User(r.Context()), input)
	if err != nil {
		fail(w, r, "submit feature request", err)
		return
	}

	msg := "Request submitted"
	if req.IsFollowUp() {
		msg = "Follow-up submitted"
	}
	ui.ToastSuccess(w, r, msg)
	h.render(w, r, "")
}

func (h *AppDevHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.requestService.Cancel(ctxkeys.User(r.Context()), id); err != nil {
		fail(w, r, "cancel feature request", err, "request_id", id)
		return
	}
	ui.ToastSuccess(w, r, "Request cancelled")
	h.render(w, r, "")
}

func (h *AppDevHandler) Reassess(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	req, err := h.requestService.Reassess(r.Context(), id)
	if err != nil {
		fail(w, r, "reassess feature request", err, "request_id", id)
		return
	}
	ui.ToastSuccess(w, r, "Risk reassessed: "+req.RiskLevel)
	h.render(w, r, "")
}

type requestJSON struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	RiskLevel    string    `json:"risk_level,omitempty"`
	BuildBranch  string    `json:"build_branch,omitempty"`
	PreviewURL   string    `json:"preview_url,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toRequestJSON(req *model.FeatureRequest) requestJSON {
	return requestJSON{
		ID:           req.ID,
		Status:       req.Status,
		RiskLevel:    req.RiskLevel,
		BuildBranch:  req.BuildBranch,
		PreviewURL:   req.PreviewURL,
		ErrorMessage: req.ErrorMessage,
		UpdatedAt:    req.UpdatedAt,
	}
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// UpdateStatus is the build worker's status endpoint.
func (h *AppDevHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var update service.StatusUpdate
	body, err := io.ReadAll(io.LimitReader(r.Body, maxStatusUpdateSize))
	if err == nil {
		err = json.Unmarshal(body, &update)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return
	}

	id := r.PathValue("id")
	req, err := h.requestService.UpdateStatus(id, update)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toRequestJSON(req))
	case errors.Is(err, repository.ErrFeatureRequestNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidStatus):
		writeJSON(w, http.StatusUnprocessableEntity, apiError{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
	default:
		slog.Error("failed to update feature request status", "error", err, "request_id", id)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "status update failed"})
	}
}
