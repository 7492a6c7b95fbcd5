package ctxkeys

import (
	"context"

	"github.com/alpacapps/spaces/internal/config"
	"github.com/alpacapps/spaces/internal/model"
)

type contextKey string

const (
	UserKey      contextKey = "user"
	NavKey       contextKey = "nav_section"
	ConfigKey    contextKey = "config"
	CSRFTokenKey contextKey = "csrf_token"
)

// User returns the signed-in user, or nil. The password hash is never set.
func User(ctx context.Context) *model.User {
	user, _ := ctx.Value(UserKey).(*model.User)
	return user
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// NavSection is the admin nav entry the current page belongs to.
func NavSection(ctx context.Context) string {
	section, _ := ctx.Value(NavKey).(string)
	return section
}

func WithNavSection(ctx context.Context, section string) context.Context {
	return context.WithValue(ctx, NavKey, section)
}

// Config returns the sanitized config placed by the Config middleware.
func Config(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(ConfigKey).(*config.Config)
	return cfg
}

func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, ConfigKey, cfg)
}

func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(CSRFTokenKey).(string)
	return token
}

func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, CSRFTokenKey, token)
}
