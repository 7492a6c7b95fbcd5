package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendMagicLinkEmail(email, token, name string) error {
	args := m.Called(email, token, name)
	return args.Error(0)
}

func (m *mockMailer) SendInvitationEmail(email, token, role, inviter string, expiresAt time.Time) error {
	args := m.Called(email, token, role, inviter, expiresAt)
	return args.Error(0)
}

type mockAssessor struct {
	mock.Mock
}

func (m *mockAssessor) Assess(ctx context.Context, description string) (*model.RiskAssessment, error) {
	args := m.Called(ctx, description)
	if a, ok := args.Get(0).(*model.RiskAssessment); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

// mockRequestRepository records writes. Methods not overridden panic through
// the nil embedded interface, which fails any test that reaches them.
type mockRequestRepository struct {
	repository.FeatureRequestRepository
	mock.Mock
}

func (m *mockRequestRepository) Create(req *model.FeatureRequest, event *model.RequestEvent, atts []*model.RequestAttachment) error {
	args := m.Called(req, event, atts)
	return args.Error(0)
}

func (m *mockRequestRepository) ByID(id string) (*model.FeatureRequest, error) {
	args := m.Called(id)
	if r, ok := args.Get(0).(*model.FeatureRequest); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
