package handler

import (
	"log/slog"
	"net/http"

	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/service"
	"github.com/alpacapps/spaces/internal/ui"
)

type imageryView struct {
	Page       *service.ImageryPage
	Cursor     string
	NextCursor string
}

type ImageryHandler struct {
	imageryService *service.ImageryService
	views          *ui.Views
}

func NewImageryHandler(imageryService *service.ImageryService, views *ui.Views) *ImageryHandler {
	return &ImageryHandler{imageryService: imageryService, views: views}
}

// FeedPage renders the feed. Requests with a before cursor come from the
// infinite scroll and get only the next batch of items.
func (h *ImageryHandler) FeedPage(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("before")

	var before *model.MediaCursor
	if cursor != "" {
		c, err := model.ParseMediaCursor(cursor)
		if err != nil {
			http.Error(w, "Invalid cursor", http.StatusBadRequest)
			return
		}
		before = c
	}

	page, err := h.imageryService.Feed(r.Context(), before)
	if err != nil {
		slog.Error("failed to load imagery", "error", err)
		h.views.Error(w, r, http.StatusInternalServerError, "Failed to load imagery")
		return
	}

	view := imageryView{Page: page, Cursor: cursor}
	if page.Next != nil {
		view.NextCursor = page.Next.String()
	}

	if before != nil && ui.IsHTMX(r) {
		h.views.Partial(w, r, "imagery", "imagery_items", view)
		return
	}
	h.views.Page(w, r, "imagery", "Imagery", view)
}
