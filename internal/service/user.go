package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
	"github.com/alpacapps/spaces/internal/validation"
)

// systemInviter names the sender of invitations created outside the UI.
const systemInviter = "The Spaces team"

var (
	ErrInvalidRole      = errors.New("invalid role")
	ErrSelfDemote       = errors.New("you cannot change your own role")
	ErrSelfDelete       = errors.New("you cannot delete your own account")
	ErrLastAdmin        = errors.New("at least one admin must remain")
	ErrUserExists       = errors.New("a user with this email already exists")
	ErrAlreadyInvited   = errors.New("a pending invitation already exists for this email")
	ErrInviteNotPending = errors.New("invitation is no longer pending")
	ErrInviteExpired    = errors.New("invitation has expired")
	ErrInviteEmail      = errors.New("invitation saved but the email could not be sent")
)

// InvitationMailer delivers invitation emails.
type InvitationMailer interface {
	SendInvitationEmail(email, token, role, inviter string, expiresAt time.Time) error
}

type UserService struct {
	userRepository       repository.UserRepository
	invitationRepository repository.InvitationRepository
	authService          *AuthService
	mailer               InvitationMailer
	invitationExpiry     time.Duration
}

func NewUserService(
	userRepository repository.UserRepository,
	invitationRepository repository.InvitationRepository,
	authService *AuthService,
	mailer InvitationMailer,
	invitationExpiry time.Duration,
) *UserService {
	return &UserService{
		userRepository:       userRepository,
		invitationRepository: invitationRepository,
		authService:          authService,
		mailer:               mailer,
		invitationExpiry:     invitationExpiry,
	}
}

func (s *UserService) ByID(id string) (*model.User, error) {
	return s.userRepository.ByID(id)
}

func (s *UserService) List(search, role string) ([]*model.User, error) {
	if role != "" && !model.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	return s.userRepository.List(strings.TrimSpace(search), role)
}

// ChangeRole sets userID's role. Admins cannot change their own role and
// the last admin cannot be demoted.
func (s *UserService) ChangeRole(actor *model.User, userID, role string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	if actor.ID == userID {
		return nil, ErrSelfDemote
	}

	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}

	if user.IsAdmin() {
		if err := s.ensureOtherAdmin(); err != nil {
			return nil, err
		}
	}

	previous := user.Role
	user.Role = role
	if err := s.userRepository.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	slog.Info("user role changed", "actor_id", actor.ID, "user_id", user.ID, "from", previous, "to", role)
	return user, nil
}

func (s *UserService) UpdateDisplayName(userID, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return nil, err
	}

	user.DisplayName = name
	if err := s.userRepository.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update name: %w", err)
	}
	return user, nil
}

func (s *UserService) Delete(actor *model.User, userID string) error {
	if actor.ID == userID {
		return ErrSelfDelete
	}

	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return err
	}

	if user.IsAdmin() {
		if err := s.ensureOtherAdmin(); err != nil {
			return err
		}
	}

	// tokens cascade; invitations keep a NULL inviter
	if err := s.userRepository.Delete(userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("user deleted", "actor_id", actor.ID, "user_id", userID, "email", user.Email)
	return nil
}

func (s *UserService) ensureOtherAdmin() error {
	admins, err := s.userRepository.CountByRole(model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

// Invitations returns all invitations, pending first, after marking
// overdue ones expired.
func (s *UserService) Invitations() ([]*model.Invitation, error) {
	if n, err := s.invitationRepository.ExpireStale(time.Now()); err != nil {
		slog.Warn("failed to expire stale invitations", "error", err)
	} else if n > 0 {
		slog.Info("invitations expired", "count", n)
	}
	return s.invitationRepository.List()
}

// Invite creates a pending invitation and emails it. If the email fails the
// invitation is kept, the failure is recorded on it, and the returned error
// wraps ErrInviteEmail. A nil actor is the ops CLI bootstrapping an admin.
func (s *UserService) Invite(actor *model.User, email, role string) (*model.Invitation, error) {
	email = normalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if !model.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	if _, err := s.userRepository.ByEmail(email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}

	existing, err := s.invitationRepository.PendingByEmail(email)
	if err != nil && !errors.Is(err, repository.ErrInvitationNotFound) {
		return nil, fmt.Errorf("failed to check invitations: %w", err)
	}
	if existing != nil {
		if !existing.IsExpiredAt(time.Now()) {
			return nil, ErrAlreadyInvited
		}
		existing.Status = model.InvitationExpired
		if err := s.invitationRepository.Update(existing); err != nil {
			return nil, fmt.Errorf("failed to expire old invitation: %w", err)
		}
	}

	token, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	var invitedBy *string
	inviter := systemInviter
	if actor != nil {
		invitedBy = &actor.ID
		inviter = actor.Name()
	}

	now := time.Now()
	inv := &model.Invitation{
		ID:        uuid.New().String(),
		Email:     email,
		Role:      role,
		Status:    model.InvitationPending,
		Token:     token,
		InvitedBy: invitedBy,
		ExpiresAt: now.Add(s.invitationExpiry),
		CreatedAt: now,
	}
	if err := s.invitationRepository.Create(inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	slog.Info("invitation created", "invited_by", inviter, "email", email, "role", role)
	return inv, s.deliver(inv, inviter)
}

// ResendInvitation refreshes the expiry of a pending invitation and sends it again.
func (s *UserService) ResendInvitation(actor *model.User, id string) (*model.Invitation, error) {
	inv, err := s.invitationRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	if !inv.IsPending() {
		return nil, ErrInviteNotPending
	}

	inv.ExpiresAt = time.Now().Add(s.invitationExpiry)
	return inv, s.deliver(inv, actor.Name())
}

func (s *UserService) RevokeInvitation(id string) error {
	inv, err := s.invitationRepository.ByID(id)
	if err != nil {
		return err
	}
	if !inv.IsPending() {
		return ErrInviteNotPending
	}

	inv.Status = model.InvitationRevoked
	if err := s.invitationRepository.Update(inv); err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}
	slog.Info("invitation revoked", "invitation_id", id, "email", inv.Email)
	return nil
}

// deliver sends the invitation email and records the attempt on inv.
func (s *UserService) deliver(inv *model.Invitation, inviter string) error {
	sendErr := s.mailer.SendInvitationEmail(inv.Email, inv.Token, inv.Role, inviter, inv.ExpiresAt)

	now := time.Now()
	inv.EmailSendCount++
	if sendErr != nil {
		inv.LastEmailError = sendErr.Error()
		slog.Error("invitation email failed", "error", sendErr, "email", inv.Email, "invitation_id", inv.ID)
	} else {
		inv.LastEmailError = ""
		inv.EmailSentAt = &now
	}

	if err := s.invitationRepository.Update(inv); err != nil {
		return fmt.Errorf("failed to record invitation send: %w", err)
	}
	if sendErr != nil {
		return fmt.Errorf("%w: %v", ErrInviteEmail, sendErr)
	}
	return nil
}

// PendingInvitation returns the invitation for token if it can still be
// accepted.
func (s *UserService) PendingInvitation(token string) (*model.Invitation, error) {
	inv, err := s.invitationRepository.ByToken(token)
	if err != nil {
		return nil, err
	}
	if !inv.IsPending() {
		return nil, ErrInviteNotPending
	}
	if inv.IsExpiredAt(time.Now()) {
		return nil, ErrInviteExpired
	}
	return inv, nil
}

// AcceptInvitation creates the invited user. password is optional; when
// given it enables password login.
func (s *UserService) AcceptInvitation(token, displayName, password string) (*model.User, error) {
	inv, err := s.invitationRepository.ByToken(token)
	if err != nil {
		return nil, err
	}
	if !inv.IsPending() {
		return nil, ErrInviteNotPending
	}

	now := time.Now()
	if inv.IsExpiredAt(now) {
		inv.Status = model.InvitationExpired
		if err := s.invitationRepository.Update(inv); err != nil {
			slog.Warn("failed to mark invitation expired", "error", err, "invitation_id", inv.ID)
		}
		return nil, ErrInviteExpired
	}

	user := &model.User{
		ID:          uuid.New().String(),
		Email:       inv.Email,
		Role:        inv.Role,
		DisplayName: strings.TrimSpace(displayName),
		LastLoginAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if user.DisplayName != "" {
		if err := validation.ValidateName(user.DisplayName); err != nil {
			return nil, err
		}
	}
	if password != "" {
		if err := validation.ValidatePassword(password); err != nil {
			return nil, err
		}
		hash, err := s.authService.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = &hash
	}

	if err := s.userRepository.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	inv.Status = model.InvitationAccepted
	inv.AcceptedAt = &now
	if err := s.invitationRepository.Update(inv); err != nil {
		slog.Warn("failed to mark invitation accepted", "error", err, "invitation_id", inv.ID)
	}

	slog.Info("invitation accepted", "user_id", user.ID, "email", user.Email, "role", user.Role)
	return user, nil
}
