package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacapps/spaces/internal/db/dbtest"
	"github.com/alpacapps/spaces/internal/model"
)

func TestInvitationRepository_PendingFirstAndExpire(t *testing.T) {
	database := dbtest.New(t)
	repo := NewInvitationRepository(database)
	now := time.Now().UTC()

	accepted := &model.Invitation{
		ID: uuid.New().String(), Email: "old@example.com", Role: model.RoleStaff, Status: model.InvitationAccepted,
		Token: "t1", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}
	stale := &model.Invitation{
		ID: uuid.New().String(), Email: "late@example.com", Role: model.RoleResident, Status: model.InvitationPending,
		Token: "t2", ExpiresAt: now.Add(-time.Hour), CreatedAt: now.Add(-8 * 24 * time.Hour),
	}
	require.NoError(t, repo.Create(accepted))
	require.NoError(t, repo.Create(stale))

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, stale.ID, list[0].ID)

	pending, err := repo.PendingByEmail("late@example.com")
	require.NoError(t, err)
	assert.Equal(t, stale.ID, pending.ID)

	n, err := repo.ExpireStale(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.PendingByEmail("late@example.com")
	assert.ErrorIs(t, err, ErrInvitationNotFound)

	byToken, err := repo.ByToken("t2")
	require.NoError(t, err)
	assert.Equal(t, model.InvitationExpired, byToken.Status)
}
