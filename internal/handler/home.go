package handler

import (
	"net/http"

	"github.com/alpacapps/spaces/internal/ui"
)

// The admin is private; crawlers get nothing.
const robotsTxt = "User-agent: *\nDisallow: /\n"

type HomeHandler struct {
	views *ui.Views
}

func NewHomeHandler(views *ui.Views) *HomeHandler {
	return &HomeHandler{views: views}
}

func (h *HomeHandler) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *HomeHandler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(robotsTxt))
}

func (h *HomeHandler) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	h.views.Error(w, r, http.StatusNotFound, "Page not found")
}
