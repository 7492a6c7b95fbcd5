package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alpacapps/spaces/internal/db/dbtest"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
	"github.com/alpacapps/spaces/internal/risk"
	"github.com/alpacapps/spaces/internal/storage/storagetest"
)

func newRequestService(database *sqlx.DB, store *storagetest.Memory, assessor risk.Assessor) *FeatureRequestService {
	return NewFeatureRequestService(
		repository.NewFeatureRequestRepository(database),
		store,
		assessor,
		true,
		5*time.Second,
		30*time.Second,
	)
}

func TestFeatureRequestService_ShortDescriptionPersistsNothing(t *testing.T) {
	// Arrange
	repo := &mockRequestRepository{}
	store := storagetest.NewMemory()
	assessor := &mockAssessor{}
	svc := NewFeatureRequestService(repo, store, assessor, true, 5*time.Second, 30*time.Second)
	requester := &model.User{ID: "u1"}

	for _, description := range []string{"", "too short", "   fix it   ", "ñandú äöü"} {
		// Act
		req, err := svc.Submit(context.Background(), requester, SubmitInput{
			Description: description,
			Attachments: []AttachmentInput{{Filename: "a.png", Data: []byte("x")}},
		})

		// Assert
		assert.ErrorIs(t, err, ErrDescriptionTooShort, description)
		assert.Nil(t, req)
	}
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	assessor.AssertNotCalled(t, "Assess", mock.Anything, mock.Anything)
	assert.Zero(t, store.Len())
}

func TestFeatureRequestService_RepositoryFailure(t *testing.T) {
	// Arrange
	repo := &mockRequestRepository{}
	repo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))
	assessor := &mockAssessor{}
	svc := NewFeatureRequestService(repo, storagetest.NewMemory(), assessor, true, time.Second, time.Minute)

	// Act
	_, err := svc.Submit(context.Background(), &model.User{ID: "u1"}, SubmitInput{Description: "Add a laundry schedule page"})

	// Assert
	assert.ErrorContains(t, err, "db down")
	repo.AssertExpectations(t)
	assessor.AssertNotCalled(t, "Assess", mock.Anything, mock.Anything)
}

func TestFeatureRequestService_UploadFailureStoresNothing(t *testing.T) {
	// Arrange
	database := dbtest.New(t)
	store := storagetest.NewMemory()
	store.SaveErr = errors.New("s3 down")
	assessor := &mockAssessor{}
	svc := newRequestService(database, store, assessor)
	requester := seedUser(t, database, "admin@example.com", model.RoleAdmin)

	// Act
	req, err := svc.Submit(context.Background(), requester, SubmitInput{
		Description: "Add a laundry schedule page",
		Attachments: []AttachmentInput{{Filename: "mock.png", MimeType: "image/png", Data: []byte("png")}},
	})

	// Assert
	assert.ErrorContains(t, err, "s3 down")
	assert.Nil(t, req)
	for _, table := range []string{"feature_requests", "feature_request_events", "feature_request_attachments"} {
		var n int
		require.NoError(t, database.Get(&n, `SELECT COUNT(*) FROM `+table))
		assert.Zero(t, n, table)
	}
	assessor.AssertNotCalled(t, "Assess", mock.Anything, mock.Anything)
}

func TestFeatureRequestService_InsertFailureRemovesUploads(t *testing.T) {
	// Arrange
	repo := &mockRequestRepository{}
	repo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(atts []*model.RequestAttachment) bool {
		return len(atts) == 2
	})).Return(errors.New("db down")).Once()
	store := storagetest.NewMemory()
	svc := NewFeatureRequestService(repo, store, &mockAssessor{}, true, time.Second, time.Minute)

	// Act
	_, err := svc.Submit(context.Background(), &model.User{ID: "u1"}, SubmitInput{
		Description: "Add a laundry schedule page",
		Attachments: []AttachmentInput{
			{Filename: "a.png", MimeType: "image/png", Data: []byte("a")},
			{Filename: "b.pdf", MimeType: "application/pdf", Data: []byte("b")},
		},
	})

	// Assert
	assert.ErrorContains(t, err, "db down")
	assert.Zero(t, store.Len())
	repo.AssertExpectations(t)
}

func TestFeatureRequestService_SubmitWithAttachmentsAndRisk(t *testing.T) {
	database := dbtest.New(t)
	store := storagetest.NewMemory()
	assessor := &mockAssessor{}
	svc := newRequestService(database, store, assessor)
	requester := seedUser(t, database, "admin@example.com", model.RoleAdmin)

	description := "Let residents reset their vault password"
	assessor.On("Assess", mock.Anything, description).Return(&model.RiskAssessment{
		Level:   model.RiskHigh,
		Summary: "Touches credentials.",
		Flags:   []string{"password", "vault"},
	}, nil).Once()

	req, err := svc.Submit(context.Background(), requester, SubmitInput{
		Description: "  " + description + "\n",
		Attachments: []AttachmentInput{{Filename: "../Screen Shot.PNG", MimeType: "image/png", Data: []byte("png-bytes")}},
	})
	require.NoError(t, err)
	assessor.AssertExpectations(t)

	assert.Equal(t, description, req.Description)
	assert.Equal(t, model.RequestPending, req.Status)
	assert.Equal(t, model.RiskHigh, req.RiskLevel)
	assert.Equal(t, []string{"password", "vault"}, req.Flags())
	require.NotNil(t, req.RequesterName)
	assert.Equal(t, "admin@example.com", *req.RequesterName)

	require.Len(t, req.Attachments, 1)
	att := req.Attachments[0]
	assert.Equal(t, "Screen Shot.PNG", att.Filename)
	assert.Contains(t, att.StoragePath, "private/appdev/"+req.ID+"/")
	assert.Equal(t, "https://storage.test/"+att.StoragePath, att.URL)
	_, ok := store.Get(att.StoragePath)
	assert.True(t, ok)
}

func TestFeatureRequestService_AssessmentFailureKeepsRequest(t *testing.T) {
	database := dbtest.New(t)
	assessor := &mockAssessor{}
	assessor.On("Assess", mock.Anything, mock.Anything).Return(nil, errors.New("quota"))
	svc := newRequestService(database, storagetest.NewMemory(), assessor)
	requester := seedUser(t, database, "admin@example.com", model.RoleAdmin)

	req, err := svc.Submit(context.Background(), requester, SubmitInput{Description: "Add a laundry schedule page"})
	require.NoError(t, err)
	assert.Empty(t, req.RiskLevel)
	assert.Empty(t, req.Flags())
}

func TestFeatureRequestService_FollowUpNeedsParent(t *testing.T) {
	database := dbtest.New(t)
	svc := newRequestService(database, storagetest.NewMemory(), risk.Heuristic{})
	requester := seedUser(t, database, "admin@example.com", model.RoleAdmin)

	_, err := svc.Submit(context.Background(), requester, SubmitInput{Description: "Follow up on nothing", ParentID: "missing"})
	assert.ErrorIs(t, err, ErrParentNotFound)

	parent, err := svc.Submit(context.Background(), requester, SubmitInput{Description: "Add a laundry schedule page"})
	require.NoError(t, err)
	child, err := svc.Submit(context.Background(), requester, SubmitInput{Description: "Also show dryer status", ParentID: parent.ID})
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)

	console, err := svc.Console("")
	require.NoError(t, err)
	require.Len(t, console.Timeline, 1)
	assert.Equal(t, parent.ID, console.Timeline[0].Request.ID)
	require.Len(t, console.Timeline[0].FollowUps, 1)
	assert.Equal(t, followUpMessage, console.Timeline[0].FollowUps[0].Events[0].Message)
}

func TestFeatureRequestService_StatusFlow(t *testing.T) {
	database := dbtest.New(t)
	svc := newRequestService(database, storagetest.NewMemory(), risk.Heuristic{})
	requester := seedUser(t, database, "admin@example.com", model.RoleAdmin)

	req, err := svc.Submit(context.Background(), requester, SubmitInput{Description: "Add a laundry schedule page"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(req.ID, StatusUpdate{Status: "shipped"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = svc.UpdateStatus(req.ID, StatusUpdate{Status: model.RequestCompleted})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	req, err = svc.UpdateStatus(req.ID, StatusUpdate{Status: model.RequestProcessing})
	require.NoError(t, err)

	console, err := svc.Console("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, console.PollInterval)

	req, err = svc.UpdateStatus(req.ID, StatusUpdate{Status: model.RequestBuilding, BuildBranch: "feat/laundry"})
	require.NoError(t, err)
	req, err = svc.UpdateStatus(req.ID, StatusUpdate{Status: model.RequestFailed, Error: "tests failed"})
	require.NoError(t, err)
	assert.Equal(t, "tests failed", req.ErrorMessage)
	assert.Equal(t, "feat/laundry", req.BuildBranch)

	req, err = svc.UpdateStatus(req.ID, StatusUpdate{Status: model.RequestPending, Message: "retry"})
	require.NoError(t, err)
	assert.Empty(t, req.ErrorMessage)

	_, err = svc.Cancel(requester, req.ID)
	require.NoError(t, err)
	_, err = svc.Cancel(requester, req.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)

	console, err = svc.Console(model.RequestFailed)
	require.NoError(t, err)
	require.Len(t, console.Timeline, 1)
	assert.Equal(t, 30*time.Second, console.PollInterval)

	var messages []string
	for _, e := range console.Timeline[0].Events {
		messages = append(messages, e.Message)
	}
	assert.Equal(t, []string{
		"cancelled",
		"retry",
		"Status changed to failed",
		"Status changed to building",
		"Status changed to processing",
		submittedMessage,
	}, messages)

	_, err = svc.Console("bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTimeline(t *testing.T) {
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return base.Add(time.Duration(m) * time.Minute) }
	parentID := "r1"

	r1 := &model.FeatureRequest{ID: "r1", CreatedAt: at(0)}
	r2 := &model.FeatureRequest{ID: "r2", CreatedAt: at(10)}
	f1 := &model.FeatureRequest{ID: "f1", ParentID: &parentID, CreatedAt: at(20)}
	f2 := &model.FeatureRequest{ID: "f2", ParentID: &parentID, CreatedAt: at(30)}
	orphanParent := "gone"
	orphan := &model.FeatureRequest{ID: "o1", ParentID: &orphanParent, CreatedAt: at(40)}

	e := func(id, req string, m int) *model.RequestEvent {
		return &model.RequestEvent{ID: id, RequestID: req, CreatedAt: at(m)}
	}
	events := []*model.RequestEvent{
		e("e1", "r1", 0), e("e2", "r2", 10), e("e3", "r1", 15),
		e("e4", "f1", 20), e("e5", "f2", 30), e("e6", "stranger", 50),
	}

	// newest first, as the repository lists them
	got := Timeline([]*model.FeatureRequest{orphan, f2, f1, r2, r1}, events)

	want := []*model.TimelineEntry{
		{Request: orphan},
		{Request: r2, Events: []*model.RequestEvent{events[1]}},
		{
			Request: r1,
			Events:  []*model.RequestEvent{events[2], events[0]},
			FollowUps: []*model.TimelineEntry{
				{Request: f2, Events: []*model.RequestEvent{events[4]}},
				{Request: f1, Events: []*model.RequestEvent{events[3]}},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Timeline() mismatch (-want +got):\n%s", diff)
	}
}

func TestPollInterval(t *testing.T) {
	svc := NewFeatureRequestService(nil, nil, nil, false, 5*time.Second, 30*time.Second)

	assert.Equal(t, 30*time.Second, svc.PollInterval(nil))
	assert.Equal(t, 30*time.Second, svc.PollInterval([]*model.FeatureRequest{{Status: model.RequestReview}}))
	assert.Equal(t, 5*time.Second, svc.PollInterval([]*model.FeatureRequest{
		{Status: model.RequestCompleted},
		{Status: model.RequestBuilding},
	}))
}
