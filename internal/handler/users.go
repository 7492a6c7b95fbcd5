package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alpacapps/spaces/internal/ctxkeys"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/service"
	"github.com/alpacapps/spaces/internal/ui"
)

type usersView struct {
	Users       []*model.User
	Invitations []*model.Invitation
	Search      string
	Role        string
	Roles       []string
}

type UsersHandler struct {
	userService *service.UserService
	views       *ui.Views
}

func NewUsersHandler(userService *service.UserService, views *ui.Views) *UsersHandler {
	return &UsersHandler{userService: userService, views: views}
}

func (h *UsersHandler) load(search, role string) (*usersView, error) {
	view := &usersView{Search: search, Role: role, Roles: model.Roles}

	var g errgroup.Group
	g.Go(func() error {
		users, err := h.userService.List(search, role)
		view.Users = users
		return err
	})
	g.Go(func() error {
		invitations, err := h.userService.Invitations()
		view.Invitations = invitations
		return err
	})
	return view, g.Wait()
}

// render re-renders the page with the filters the request carried
func (h *UsersHandler) render(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	role := r.URL.Query().Get("role")

	view, err := h.load(search, role)
	if errors.Is(err, service.ErrInvalidRole) {
		view, err = h.load(search, "")
	}
	if err != nil {
		slog.Error("failed to load users", "error", err)
		h.views.Error(w, r, http.StatusInternalServerError, "Failed to load users")
		return
	}
	h.views.Page(w, r, "users", "Users", view)
}

func (h *UsersHandler) UsersPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r)
}

func (h *UsersHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor := ctxkeys.User(r.Context())
	user, err := h.userService.ChangeRole(actor, r.PathValue("id"), r.FormValue("role"))
	if err != nil {
		fail(w, r, "change role", err, "user_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, user.Name()+" is now "+user.Role)
	h.render(w, r)
}

func (h *UsersHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	if _, err := h.userService.UpdateDisplayName(r.PathValue("id"), r.FormValue("display_name")); err != nil {
		fail(w, r, "update display name", err, "user_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, "Name updated")
	h.render(w, r)
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := ctxkeys.User(r.Context())
	if err := h.userService.Delete(actor, r.PathValue("id")); err != nil {
		fail(w, r, "delete user", err, "user_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, "User deleted")
	h.render(w, r)
}

func (h *UsersHandler) Invite(w http.ResponseWriter, r *http.Request) {
	actor := ctxkeys.User(r.Context())
	inv, err := h.userService.Invite(actor, r.FormValue("email"), r.FormValue("role"))
	if errors.Is(err, service.ErrInviteEmail) {
		// The invitation exists; show it with its delivery error
		ui.ToastError(w, r, "Invitation saved but the email to "+inv.Email+" failed. Use resend to try again.")
		h.render(w, r)
		return
	}
	if err != nil {
		fail(w, r, "invite user", err)
		return
	}
	ui.ToastSuccess(w, r, "Invitation sent to "+inv.Email)
	h.render(w, r)
}

func (h *UsersHandler) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	actor := ctxkeys.User(r.Context())
	inv, err := h.userService.ResendInvitation(actor, r.PathValue("id"))
	if errors.Is(err, service.ErrInviteEmail) {
		ui.ToastError(w, r, "The email to "+inv.Email+" failed again.")
		h.render(w, r)
		return
	}
	if err != nil {
		fail(w, r, "resend invitation", err, "invitation_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, "Invitation resent to "+inv.Email)
	h.render(w, r)
}

func (h *UsersHandler) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.RevokeInvitation(r.PathValue("id")); err != nil {
		fail(w, r, "revoke invitation", err, "invitation_id", r.PathValue("id"))
		return
	}
	ui.ToastSuccess(w, r, "Invitation revoked")
	h.render(w, r)
}
