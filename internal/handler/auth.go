package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/alpacapps/spaces/internal/config"
	"github.com/alpacapps/spaces/internal/ctxkeys"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
	"github.com/alpacapps/spaces/internal/service"
	"github.com/alpacapps/spaces/internal/ui"
)

const oauthStateCookie = "oauth_state"

type authView struct {
	Sent          bool
	Email         string
	Error         string
	GoogleEnabled bool
}

type inviteView struct {
	Invitation *model.Invitation
	Token      string
	Problem    string
	Error      string
}

type AuthHandler struct {
	authService       *service.AuthService
	userService       *service.UserService
	views             *ui.Views
	googleOAuthConfig *oauth2.Config
}

func NewAuthHandler(authService *service.AuthService, userService *service.UserService, views *ui.Views, cfg *config.Config) *AuthHandler {
	h := &AuthHandler{
		authService: authService,
		userService: userService,
		views:       views,
	}
	if cfg.GoogleClientID != "" {
		h.googleOAuthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/google/callback",
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email"},
			Endpoint:     google.Endpoint,
		}
	}
	return h
}

func (h *AuthHandler) AuthPage(w http.ResponseWriter, r *http.Request) {
	view := authView{GoogleEnabled: h.googleOAuthConfig != nil}
	if r.URL.Query().Get("error") == "oauth" {
		view.Error = "Google sign-in failed. Please try again."
	}
	h.views.Page(w, r, "auth", "Sign in", view)
}

func (h *AuthHandler) panel(w http.ResponseWriter, r *http.Request, view authView) {
	view.GoogleEnabled = h.googleOAuthConfig != nil
	h.views.Partial(w, r, "auth", "login_panel", view)
}

func (h *AuthHandler) SendMagicLink(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))

	err := h.authService.SendMagicLink(email)
	if errors.Is(err, service.ErrInvalidEmail) {
		h.panel(w, r, authView{Email: email, Error: "Please provide a valid email address"})
		return
	}
	if err != nil {
		// Don't reveal specific errors to prevent email enumeration
		slog.Warn("magic link send failed", "error", err, "email", email)
	}

	h.panel(w, r, authView{Sent: true, Email: email})
}

func (h *AuthHandler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.VerifyMagicLink(r.PathValue("token"))
	if err != nil {
		slog.Warn("magic link verification failed", "error", err)
		h.views.Page(w, r, "auth", "Sign in", authView{
			Error:         "Invalid or expired sign-in link. Please request a new one.",
			GoogleEnabled: h.googleOAuthConfig != nil,
		})
		return
	}
	h.signIn(w, r, user)
}

func (h *AuthHandler) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if email == "" || password == "" {
		h.panel(w, r, authView{Email: email, Error: "Email and password are required"})
		return
	}

	user, err := h.authService.Login(email, password)
	if err != nil {
		slog.Warn("password login failed", "error", err, "email", email)
		msg := "Invalid email or password"
		if errors.Is(err, service.ErrPasswordless) {
			msg = sentence(service.ErrPasswordless.Error())
		}
		h.panel(w, r, authView{Email: email, Error: msg})
		return
	}
	h.signIn(w, r, user)
}

func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, user *model.User) {
	if err := h.authService.StartSession(w, user); err != nil {
		slog.Error("failed to start session", "error", err, "user_id", user.ID)
		h.views.Error(w, r, http.StatusInternalServerError, genericErrorText)
		return
	}
	ui.Redirect(w, r, "/admin")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	ui.Redirect(w, r, "/auth")
}

// Home sends each role to the first page it may use.
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	switch {
	case user == nil:
		ui.Redirect(w, r, "/auth")
	case user.IsAdmin():
		ui.Redirect(w, r, "/admin/users")
	case user.HasRole(model.RoleStaff):
		ui.Redirect(w, r, "/admin/media")
	default:
		h.views.Error(w, r, http.StatusForbidden, "Your account has no admin pages.")
	}
}

// GoogleAuth redirects user to Google OAuth consent screen
func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	if h.googleOAuthConfig == nil {
		http.NotFound(w, r)
		return
	}

	state := generateOAuthState()
	cfg := ctxkeys.Config(r.Context())
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg != nil && cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	http.Redirect(w, r, h.googleOAuthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback signs in an existing user whose Google email matches
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.googleOAuthConfig == nil {
		http.NotFound(w, r)
		return
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		slog.Warn("google oauth state validation failed", "error", err)
		http.Redirect(w, r, "/auth?error=oauth", http.StatusSeeOther)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("google oauth callback missing code")
		http.Redirect(w, r, "/auth?error=oauth", http.StatusSeeOther)
		return
	}

	email, err := h.googleEmail(r, code)
	if err != nil {
		slog.Error("google oauth failed", "error", err)
		http.Redirect(w, r, "/auth?error=oauth", http.StatusSeeOther)
		return
	}

	user, err := h.authService.AuthenticateOAuth(email, "google")
	if err != nil {
		slog.Warn("google sign-in rejected", "error", err, "email", email)
		http.Redirect(w, r, "/auth?error=oauth", http.StatusSeeOther)
		return
	}
	h.signIn(w, r, user)
}

func (h *AuthHandler) googleEmail(r *http.Request, code string) (string, error) {
	token, err := h.googleOAuthConfig.Exchange(r.Context(), code)
	if err != nil {
		return "", err
	}

	resp, err := h.googleOAuthConfig.Client(r.Context(), token).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	var info struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if !info.VerifiedEmail {
		return "", errors.New("google email not verified")
	}
	return info.Email, nil
}

func generateOAuthState() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.URLEncoding.EncodeToString(b)
}

func (h *AuthHandler) InvitePage(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	inv, err := h.userService.PendingInvitation(token)
	problem := invitationProblem(err)
	if err != nil && problem == "" {
		slog.Error("failed to load invitation", "error", err)
		h.views.Error(w, r, http.StatusInternalServerError, genericErrorText)
		return
	}
	h.views.Page(w, r, "invite", "Accept invitation", inviteView{
		Invitation: inv,
		Token:      token,
		Problem:    problem,
	})
}

func (h *AuthHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	user, err := h.userService.AcceptInvitation(token, r.FormValue("display_name"), r.FormValue("password"))
	if err != nil {
		view := inviteView{Token: token, Problem: invitationProblem(err)}
		if view.Problem == "" {
			// Form errors: keep the form so the person can fix it
			view.Invitation, _ = h.userService.PendingInvitation(token)
			if msg, ok := publicMessage(err); ok {
				view.Error = msg
			} else {
				slog.Error("accept invitation failed", "error", err)
				view.Error = genericErrorText
			}
		}
		h.views.Page(w, r, "invite", "Accept invitation", view)
		return
	}
	h.signIn(w, r, user)
}

func invitationProblem(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, repository.ErrInvitationNotFound):
		return "This invitation link is not valid."
	case errors.Is(err, service.ErrInviteExpired):
		return "This invitation has expired. Ask an admin to send a new one."
	case errors.Is(err, service.ErrInviteNotPending):
		return "This invitation has already been used or was revoked."
	case errors.Is(err, service.ErrUserExists):
		return "An account already exists for this email. Sign in instead."
	}
	return ""
}
