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

func TestAssistantRepository_SetDefaultIsExclusive(t *testing.T) {
	database := dbtest.New(t)
	repo := NewAssistantRepository(database)
	now := time.Now().UTC()

	var ids []string
	for _, name := range []string{"Front desk", "After hours"} {
		a := &model.VoiceAssistant{ID: uuid.New().String(), Name: name, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, repo.Create(a))
		ids = append(ids, a.ID)
	}

	require.NoError(t, repo.SetDefault(ids[0]))
	require.NoError(t, repo.SetDefault(ids[1]))

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[1], list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.False(t, list[1].IsDefault)

	assert.ErrorIs(t, repo.SetDefault("missing"), ErrAssistantNotFound)

	// failed SetDefault leaves the previous default intact
	a, err := repo.ByID(ids[1])
	require.NoError(t, err)
	assert.True(t, a.IsDefault)
}

func TestCallRepository_UpsertAndStats(t *testing.T) {
	database := dbtest.New(t)
	assistants := NewAssistantRepository(database)
	calls := NewCallRepository(database)
	now := time.Now().UTC()

	a := &model.VoiceAssistant{ID: uuid.New().String(), Name: "Front desk", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, assistants.Create(a))

	started := now.Add(-time.Hour)
	call := &model.VoiceCall{
		ID:             uuid.New().String(),
		ProviderCallID: "call_1",
		AssistantID:    &a.ID,
		CallerNumber:   "+15550100",
		Status:         "in-progress",
		StartedAt:      &started,
		CreatedAt:      now,
	}
	require.NoError(t, calls.Upsert(call))

	update := *call
	update.ID = uuid.New().String()
	update.Status = "ended"
	update.DurationSeconds = 125
	update.CostCents = 40
	update.Summary = "Guest asked about late checkout"
	require.NoError(t, calls.Upsert(&update))

	require.NoError(t, calls.Upsert(&model.VoiceCall{
		ID:              uuid.New().String(),
		ProviderCallID:  "call_2",
		StartedAt:       &now,
		DurationSeconds: 60,
		CostCents:       10,
		CreatedAt:       now,
	}))

	list, err := calls.List(model.CallFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "call_2", list[0].ProviderCallID)

	stored, err := calls.ByID(call.ID)
	require.NoError(t, err)
	assert.Equal(t, "ended", stored.Status)
	require.NotNil(t, stored.AssistantName)
	assert.Equal(t, "Front desk", *stored.AssistantName)

	list, err = calls.List(model.CallFilter{Search: "checkout"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	stats, err := calls.Stats(model.CallFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, int64(185), stats.DurationSeconds)
	assert.Equal(t, int64(50), stats.CostCents)

	stats, err = calls.Stats(model.CallFilter{AssistantID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
}

func TestCallRepository_DateFilterAcrossZones(t *testing.T) {
	database := dbtest.New(t)
	calls := NewCallRepository(database)
	chicago := time.FixedZone("CDT", -5*60*60)
	tokyo := time.FixedZone("JST", 9*60*60)

	seed := func(providerID string, started time.Time) {
		require.NoError(t, calls.Upsert(&model.VoiceCall{
			ID:             uuid.New().String(),
			ProviderCallID: providerID,
			Status:         "ended",
			StartedAt:      &started,
			CreatedAt:      started,
		}))
	}
	// 03:00 UTC is still the previous day in Chicago.
	seed("late_night", time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC))
	seed("morning", time.Date(2026, 10, 18, 9, 0, 0, 0, chicago))
	// 15:00 UTC written with a +09:00 offset.
	seed("afternoon", time.Date(2026, 10, 19, 0, 0, 0, 0, tokyo))

	from := time.Date(2026, 10, 18, 0, 0, 0, 0, chicago)
	to := from.AddDate(0, 0, 1)
	list, err := calls.List(model.CallFilter{From: &from, To: &to})
	require.NoError(t, err)

	var got []string
	for _, c := range list {
		got = append(got, c.ProviderCallID)
	}
	assert.Equal(t, []string{"afternoon", "morning"}, got)

	stats, err := calls.Stats(model.CallFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
}
