package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
)

func seedUser(t *testing.T, database *sqlx.DB, email, role string) *model.User {
	t.Helper()
	now := time.Now()
	user := &model.User{ID: uuid.New().String(), Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repository.NewUserRepository(database).Create(user))
	return user
}

func newAuthService(database *sqlx.DB, mailer MagicLinkMailer) *AuthService {
	return NewAuthService(
		repository.NewUserRepository(database),
		repository.NewTokenRepository(database),
		mailer,
		"test-secret",
		false,
		time.Hour,
		15*time.Minute,
	)
}
