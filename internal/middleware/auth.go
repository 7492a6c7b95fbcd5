package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alpacapps/spaces/internal/ctxkeys"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/service"
	"github.com/alpacapps/spaces/internal/ui"
)

// SessionVerifier validates session tokens and clears stale cookies.
type SessionVerifier interface {
	VerifyJWT(token string) (jwt.MapClaims, error)
	ClearJWTCookie(w http.ResponseWriter)
}

type UserLoader interface {
	ByID(id string) (*model.User, error)
}

// AuthMiddleware checks the session cookie and adds the user to context if valid
func AuthMiddleware(sessions SessionVerifier, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(service.AuthCookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := sessions.VerifyJWT(cookie.Value)
			if err != nil {
				sessions.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := claims["user_id"].(string)
			if !ok {
				sessions.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			// Deleted users lose their session on the next request
			user, err := users.ByID(userID)
			if err != nil {
				sessions.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			// Security: Remove password hash from context
			user.PasswordHash = nil

			ctx := ctxkeys.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through signed-in users holding one of roles. Anonymous
// visitors are sent to the sign-in page; other roles get 403.
func RequireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user := ctxkeys.User(r.Context())
			if user == nil {
				ui.Redirect(w, r, "/auth")
				return
			}
			if !user.HasRole(roles...) {
				slog.Warn("access denied", "user_id", user.ID, "role", user.Role, "path", r.URL.Path)
				if r.Header.Get("HX-Request") == "true" {
					// Toast only; leave the page as it is
					w.Header().Set("HX-Reswap", "none")
					ui.ToastError(w, r, "You do not have access to this page.")
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}
}

// RequireGuest ensures the user is not authenticated
func RequireGuest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) != nil {
			ui.Redirect(w, r, "/admin")
			return
		}
		next(w, r)
	}
}

// RequireBearer guards machine endpoints with a static token. An empty
// token rejects every request.
func RequireBearer(token string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				slog.Warn("bearer auth failed", "path", r.URL.Path, "ip", getClientIP(r))
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
}
