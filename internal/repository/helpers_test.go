package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/alpacapps/spaces/internal/model"
)

func seedUser(t *testing.T, database *sqlx.DB, email, role string) *model.User {
	t.Helper()
	now := time.Now().UTC()
	user := &model.User{
		ID:        uuid.New().String(),
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, NewUserRepository(database).Create(user))
	return user
}

func seedSpace(t *testing.T, database *sqlx.DB, name, slug string) *model.Space {
	t.Helper()
	space := &model.Space{ID: uuid.New().String(), Name: name, Slug: slug, CreatedAt: time.Now().UTC()}
	require.NoError(t, NewSpaceRepository(database).Create(space))
	return space
}

func ptr[T any](v T) *T {
	return &v
}
