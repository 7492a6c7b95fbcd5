package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alpacapps/spaces/internal/ctxkeys"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
	"github.com/alpacapps/spaces/internal/service"
	"github.com/alpacapps/spaces/internal/ui"
)

const (
	vaultListPath    = "/admin/passwords"
	vaultGroupedPath = "/admin/passwords-alt"
)

type vaultView struct {
	Page   *service.VaultPage
	Filter model.VaultFilter
	Base   string
	Edit   *model.VaultEntry
}

type VaultHandler struct {
	vaultService *service.VaultService
	views        *ui.Views
}

func NewVaultHandler(vaultService *service.VaultService, views *ui.Views) *VaultHandler {
	return &VaultHandler{vaultService: vaultService, views: views}
}

func vaultFilter(r *http.Request) model.VaultFilter {
	q := r.URL.Query()
	return model.VaultFilter{
		Search:          strings.TrimSpace(q.Get("q")),
		Category:        q.Get("category"),
		SpaceID:         q.Get("space"),
		IncludeInactive: q.Get("inactive") == "1",
	}
}

// vaultBase is the view a mutation came from; the flat list by default.
func vaultBase(r *http.Request) string {
	if r.URL.Query().Get("view") == vaultGroupedPath {
		return vaultGroupedPath
	}
	return vaultListPath
}

func (h *VaultHandler) render(w http.ResponseWriter, r *http.Request, base string, filter model.VaultFilter, edit *model.VaultEntry) {
	page, err := h.vaultService.Page(filter)
	if err != nil {
		slog.Error("failed to load vault", "error", err)
		h.views.Error(w, r, http.StatusInternalServerError, "Failed to load passwords")
		return
	}

	view := vaultView{Page: page, Filter: filter, Base: base, Edit: edit}
	if base == vaultGroupedPath {
		h.views.Page(w, r, "vault_grouped", "Passwords by space", view)
		return
	}
	h.views.Page(w, r, "vault", "Passwords", view)
}

func (h *VaultHandler) page(w http.ResponseWriter, r *http.Request, base string) {
	var edit *model.VaultEntry
	if id := r.URL.Query().Get("edit"); id != "" {
		entry, err := h.vaultService.ByID(id)
		if err != nil && !errors.Is(err, repository.ErrVaultEntryNotFound) {
			slog.Error("failed to load vault entry", "error", err, "entry_id", id)
		}
		edit = entry
	}
	h.render(w, r, base, vaultFilter(r), edit)
}

func (h *VaultHandler) ListPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, vaultListPath)
}

func (h *VaultHandler) GroupedPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, vaultGroupedPath)
}

func (h *VaultHandler) Save(w http.ResponseWriter, r *http.Request) {
	input := service.VaultInput{
		ID:            r.FormValue("id"),
		Service:       r.FormValue("service"),
		Category:      r.FormValue("category"),
		Username:      r.FormValue("username"),
		Password:      r.FormValue("password"),
		ClearPassword: formBool(r, "clear_password"),
		URL:           r.FormValue("url"),
		Notes:         r.FormValue("notes"),
		SpaceID:       r.FormValue("space_id"),
	}

	entry, err := h.vaultService.Save(input)
	if err != nil {
		fail(w, r, "save vault entry", err, "entry_id", input.ID)
		return
	}

	ui.ToastSuccess(w, r, entry.Service+" saved")
	h.render(w, r, vaultBase(r), model.VaultFilter{}, nil)
}

func (h *VaultHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	password, err := h.vaultService.Reveal(ctxkeys.User(r.Context()), r.PathValue("id"))
	if err != nil {
		fail(w, r, "reveal password", err, "entry_id", r.PathValue("id"))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.views.Partial(w, r, "vault", "vault_secret", password)
}

func (h *VaultHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	entry, err := h.vaultService.ToggleActive(r.PathValue("id"))
	if err != nil {
		fail(w, r, "toggle vault entry", err, "entry_id", r.PathValue("id"))
		return
	}

	state := "deactivated"
	if entry.IsActive {
		state = "activated"
	}
	ui.ToastSuccess(w, r, entry.Service+" "+state)
	h.render(w, r, vaultBase(r), model.VaultFilter{IncludeInactive: true}, nil)
}

func (h *VaultHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.vaultService.Delete(ctxkeys.User(r.Context()), r.PathValue("id")); err != nil {
		fail(w, r, "delete vault entry", err, "entry_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, "Entry deleted")
	h.render(w, r, vaultBase(r), model.VaultFilter{}, nil)
}

// Reorder stores the order of a drag-and-drop. The browser already shows
// the new order, so success has no body.
func (h *VaultHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	if err := h.vaultService.Reorder(formList(r, "id")); err != nil {
		fail(w, r, "reorder vault", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VaultHandler) Generate(w http.ResponseWriter, r *http.Request) {
	password, err := h.vaultService.Generate(queryInt(r, "length", 0))
	if err != nil {
		fail(w, r, "generate password", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.views.Partial(w, r, "vault", "vault_password_input", password)
}
