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

func TestFeatureRequestRepository_Lifecycle(t *testing.T) {
	database := dbtest.New(t)
	repo := NewFeatureRequestRepository(database)
	user := seedUser(t, database, "ada@example.com", model.RoleAdmin)
	now := time.Now().UTC()

	req := &model.FeatureRequest{
		ID:          uuid.New().String(),
		RequesterID: &user.ID,
		Description: "Add a late checkout toggle",
		Status:      model.RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.Create(req, &model.RequestEvent{
		ID: uuid.New().String(), RequestID: req.ID, Status: model.RequestPending, Message: "Submitted", CreatedAt: now,
	}, nil))

	stored, err := repo.ByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, "[]", stored.RiskFlags)
	require.NotNil(t, stored.RequesterName)
	assert.Equal(t, "ada@example.com", *stored.RequesterName)

	stored.Status = model.RequestProcessing
	stored.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.Transition(stored, &model.RequestEvent{
		ID: uuid.New().String(), RequestID: req.ID, Status: model.RequestProcessing, CreatedAt: now.Add(time.Minute),
	}))

	require.NoError(t, repo.SetRisk(req.ID, &model.RiskAssessment{Level: model.RiskHigh, Summary: "touches payments", Flags: []string{"payments"}}))

	stored, err = repo.ByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestProcessing, stored.Status)
	assert.Equal(t, model.RiskHigh, stored.RiskLevel)
	assert.JSONEq(t, `["payments"]`, stored.RiskFlags)

	events, err := repo.EventsFor([]string{req.ID})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.RequestPending, events[0].Status)

	list, err := repo.List(model.RequestProcessing, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = repo.List(model.RequestCompleted, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = repo.ByID("missing")
	assert.ErrorIs(t, err, ErrFeatureRequestNotFound)
}

func TestFeatureRequestRepository_Attachments(t *testing.T) {
	database := dbtest.New(t)
	repo := NewFeatureRequestRepository(database)
	now := time.Now().UTC()

	req := &model.FeatureRequest{ID: uuid.New().String(), Description: "Show pool hours", Status: model.RequestPending, CreatedAt: now, UpdatedAt: now}
	event := &model.RequestEvent{ID: uuid.New().String(), RequestID: req.ID, Status: model.RequestPending, CreatedAt: now}
	require.NoError(t, repo.Create(req, event, []*model.RequestAttachment{{
		ID: uuid.New().String(), RequestID: req.ID, StoragePath: "appdev/x/mock.png", Filename: "mock.png", MimeType: "image/png", SizeBytes: 10, CreatedAt: now,
	}}))

	atts, err := repo.AttachmentsFor([]string{req.ID, "other"})
	require.NoError(t, err)
	require.Len(t, atts[req.ID], 1)
	assert.Equal(t, "mock.png", atts[req.ID][0].Filename)
	assert.Empty(t, atts["other"])
}
