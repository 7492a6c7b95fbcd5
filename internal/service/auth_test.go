package service

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alpacapps/spaces/internal/db/dbtest"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
)

func TestAuthService_MagicLinkFlow(t *testing.T) {
	// Arrange
	database := dbtest.New(t)
	mailer := &mockMailer{}
	svc := newAuthService(database, mailer)
	user := seedUser(t, database, "ada@example.com", model.RoleAdmin)

	var sentToken string
	mailer.On("SendMagicLinkEmail", "ada@example.com", mock.AnythingOfType("string"), "").
		Run(func(args mock.Arguments) { sentToken = args.String(1) }).
		Return(nil).Once()

	// Act
	require.NoError(t, svc.SendMagicLink("  ADA@example.com "))
	got, err := svc.VerifyMagicLink(sentToken)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotNil(t, got.LastLoginAt)
	mailer.AssertExpectations(t)

	_, err = svc.VerifyMagicLink(sentToken)
	assert.ErrorIs(t, err, ErrInvalidMagicLink)
}

func TestAuthService_SendMagicLinkUnknownEmailIsSilent(t *testing.T) {
	database := dbtest.New(t)
	mailer := &mockMailer{}
	svc := newAuthService(database, mailer)

	assert.NoError(t, svc.SendMagicLink("nobody@example.com"))
	assert.ErrorIs(t, svc.SendMagicLink("not-an-email"), ErrInvalidEmail)
	mailer.AssertNotCalled(t, "SendMagicLinkEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_PasswordLogin(t *testing.T) {
	database := dbtest.New(t)
	svc := newAuthService(database, &mockMailer{})
	users := repository.NewUserRepository(database)

	user := seedUser(t, database, "ada@example.com", model.RoleAdmin)

	_, err := svc.Login("ada@example.com", "whatever")
	assert.ErrorIs(t, err, ErrPasswordless)

	hash, err := svc.HashPassword("correct horse battery")
	require.NoError(t, err)
	user.PasswordHash = &hash
	require.NoError(t, users.Update(user))

	_, err = svc.Login("ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("ghost@example.com", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	got, err := svc.Login("Ada@Example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	stored, err := users.ByID(user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestAuthService_OAuthExistingUsersOnly(t *testing.T) {
	database := dbtest.New(t)
	svc := newAuthService(database, &mockMailer{})
	seedUser(t, database, "staff@example.com", model.RoleStaff)

	_, err := svc.AuthenticateOAuth("stranger@example.com", "google")
	assert.ErrorIs(t, err, ErrNoAccount)

	user, err := svc.AuthenticateOAuth("staff@example.com", "google")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, user.Role)
}

func TestAuthService_SessionCookieRoundTrip(t *testing.T) {
	svc := newAuthService(dbtest.New(t), &mockMailer{})
	user := &model.User{ID: "u1", Role: model.RoleAdmin}

	rec := httptest.NewRecorder()
	require.NoError(t, svc.StartSession(rec, user))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AuthCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	claims, err := svc.VerifyJWT(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims["user_id"])
	assert.Equal(t, model.RoleAdmin, claims["role"])

	_, err = svc.VerifyJWT(cookies[0].Value + "x")
	assert.Error(t, err)
}
