package routes

import (
	"net/http"

	"github.com/alpacapps/spaces/internal/app"
	"github.com/alpacapps/spaces/internal/handler"
	"github.com/alpacapps/spaces/internal/middleware"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/ui"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	home := handler.NewHomeHandler(app.Views)
	auth := handler.NewAuthHandler(app.AuthService, app.UserService, app.Views, app.Cfg)
	users := handler.NewUsersHandler(app.UserService, app.Views)
	vault := handler.NewVaultHandler(app.VaultService, app.Views)
	media := handler.NewMediaHandler(app.MediaService, app.Views)
	imagery := handler.NewImageryHandler(app.ImageryService, app.Views)
	voice := handler.NewVoiceHandler(app.VoiceService, app.Views, app.Cfg.Location())
	appdev := handler.NewAppDevHandler(app.FeatureRequestService, app.Views)
	health := handler.NewHealthHandler(app.DB)

	admin := middleware.RequireRole(model.RoleAdmin)
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleStaff)
	signedIn := middleware.RequireRole(model.Roles...)
	rateLimit := app.AuthLimiter.Limit
	builder := middleware.RequireBearer(app.Cfg.BuilderAPIToken)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.Handle("GET /static/", http.StripPrefix("/static/", ui.Static()))
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /robots.txt", home.Robots)
	mux.HandleFunc("GET /{$}", home.Root)

	// Auth (rate limited)
	mux.HandleFunc("GET /auth", middleware.RequireGuest(auth.AuthPage))
	mux.HandleFunc("POST /auth/magic-link", rateLimit(middleware.RequireGuest(auth.SendMagicLink)))
	mux.HandleFunc("GET /auth/magic-link/{token}", rateLimit(auth.VerifyMagicLink))
	mux.HandleFunc("POST /auth/login", rateLimit(middleware.RequireGuest(auth.PasswordLogin)))
	mux.HandleFunc("GET /auth/google", rateLimit(middleware.RequireGuest(auth.GoogleAuth)))
	mux.HandleFunc("GET /auth/google/callback", rateLimit(auth.GoogleCallback))
	mux.HandleFunc("GET /auth/invite/{token}", rateLimit(auth.InvitePage))
	mux.HandleFunc("POST /auth/invite/{token}", rateLimit(auth.AcceptInvitation))
	mux.HandleFunc("POST /auth/logout", auth.Logout)

	// ============================================================================
	// ADMIN ROUTES (/admin/*)
	// ============================================================================

	mux.HandleFunc("GET /admin", signedIn(auth.Home))

	// Users and invitations
	mux.HandleFunc("GET /admin/users", admin(users.UsersPage))
	mux.HandleFunc("POST /admin/users/{id}/role", admin(users.ChangeRole))
	mux.HandleFunc("POST /admin/users/{id}/name", admin(users.UpdateName))
	mux.HandleFunc("DELETE /admin/users/{id}", admin(users.Delete))
	mux.HandleFunc("POST /admin/invitations", admin(users.Invite))
	mux.HandleFunc("POST /admin/invitations/{id}/resend", admin(users.ResendInvitation))
	mux.HandleFunc("DELETE /admin/invitations/{id}", admin(users.RevokeInvitation))

	// Password vault
	mux.HandleFunc("GET /admin/passwords", admin(vault.ListPage))
	mux.HandleFunc("GET /admin/passwords-alt", admin(vault.GroupedPage))
	mux.HandleFunc("GET /admin/passwords/generate", admin(vault.Generate))
	mux.HandleFunc("POST /admin/passwords", admin(vault.Save))
	mux.HandleFunc("POST /admin/passwords/reorder", admin(vault.Reorder))
	mux.HandleFunc("POST /admin/passwords/{id}/reveal", admin(vault.Reveal))
	mux.HandleFunc("POST /admin/passwords/{id}/toggle", admin(vault.ToggleActive))
	mux.HandleFunc("DELETE /admin/passwords/{id}", admin(vault.Delete))

	// Media library
	mux.HandleFunc("GET /admin/media", staff(media.LibraryPage))
	mux.HandleFunc("POST /admin/media", staff(media.Upload))
	mux.HandleFunc("POST /admin/media/bulk-tag", staff(media.BulkTag))
	mux.HandleFunc("POST /admin/media/tags", staff(media.SaveTag))
	mux.HandleFunc("DELETE /admin/media/tags/{id}", staff(media.DeleteTag))
	mux.HandleFunc("GET /admin/media/{id}", staff(media.Detail))
	mux.HandleFunc("POST /admin/media/{id}", staff(media.Update))
	mux.HandleFunc("POST /admin/media/{id}/tags", staff(media.SetTags))
	mux.HandleFunc("POST /admin/media/{id}/spaces", staff(media.SetSpaces))
	mux.HandleFunc("DELETE /admin/media/{id}", staff(media.Delete))
	mux.HandleFunc("POST /admin/spaces", staff(media.CreateSpace))

	// Imagery
	mux.HandleFunc("GET /admin/imagery", staff(imagery.FeedPage))

	// Voice assistants and call log
	mux.HandleFunc("GET /admin/voice", admin(voice.AssistantsPage))
	mux.HandleFunc("POST /admin/voice", admin(voice.Save))
	mux.HandleFunc("POST /admin/voice/import", admin(voice.Import))
	mux.HandleFunc("POST /admin/voice/{id}/activate", admin(voice.Activate))
	mux.HandleFunc("POST /admin/voice/{id}/default", admin(voice.SetDefault))
	mux.HandleFunc("POST /admin/voice/{id}/push", admin(voice.Push))
	mux.HandleFunc("DELETE /admin/voice/{id}", admin(voice.Delete))
	mux.HandleFunc("GET /admin/voice/calls", admin(voice.CallsPage))
	mux.HandleFunc("POST /admin/voice/calls/sync", admin(voice.SyncCalls))
	mux.HandleFunc("GET /admin/voice/calls/{id}", admin(voice.CallPage))

	// Feature-request console
	mux.HandleFunc("GET /admin/appdev", admin(appdev.ConsolePage))
	mux.HandleFunc("POST /admin/appdev", admin(appdev.Submit))
	mux.HandleFunc("GET /admin/appdev/status", admin(appdev.Status))
	mux.HandleFunc("POST /admin/appdev/{id}/cancel", admin(appdev.Cancel))
	mux.HandleFunc("POST /admin/appdev/{id}/assess", admin(appdev.Reassess))

	// ============================================================================
	// MACHINE ROUTES
	// ============================================================================

	// Voice provider end-of-call reports (Standard Webhooks signature)
	mux.HandleFunc("POST /webhooks/voice", voice.Webhook)

	// Build worker status reports
	mux.HandleFunc("POST /api/feature-requests/{id}/status", builder(appdev.UpdateStatus))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	// 404
	mux.HandleFunc("/{path...}", home.NotFoundPage)

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.Config(app.Cfg), // Config must be first (needed by SecurityHeaders for S3 endpoint)
		middleware.NonceMiddleware, // Generate CSP nonce before SecurityHeaders reads it
		middleware.SecurityHeaders,
		middleware.CSRFProtection, // Skips /webhooks/ and /api/
		middleware.AuthMiddleware(app.AuthService, app.UserService),
		middleware.RequestLogging, // After auth so lines carry user_id
		middleware.WithNavSection,
	)
}
