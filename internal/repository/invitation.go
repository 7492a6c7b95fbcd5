package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alpacapps/spaces/internal/model"
)

var (
	ErrInvitationNotFound = errors.New("invitation not found")
)

type InvitationRepository interface {
	Create(inv *model.Invitation) error
	ByID(id string) (*model.Invitation, error)
	ByToken(token string) (*model.Invitation, error)
	PendingByEmail(email string) (*model.Invitation, error)
	List() ([]*model.Invitation, error)
	Update(inv *model.Invitation) error
	ExpireStale(now time.Time) (int64, error)
}

type invitationRepository struct {
	db *sqlx.DB
}

func NewInvitationRepository(db *sqlx.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(inv *model.Invitation) error {
	query := `INSERT INTO user_invitations
	          (id, email, role, status, token, invited_by, expires_at, email_sent_at, email_send_count, last_email_error, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := exec(r.db, query,
		inv.ID,
		inv.Email,
		inv.Role,
		inv.Status,
		inv.Token,
		inv.InvitedBy,
		inv.ExpiresAt,
		inv.EmailSentAt,
		inv.EmailSendCount,
		inv.LastEmailError,
		inv.CreatedAt,
	)
	return err
}

func (r *invitationRepository) get(query string, args ...any) (*model.Invitation, error) {
	inv := &model.Invitation{}
	err := getOne(r.db, inv, query, args...)
	if err == sql.ErrNoRows {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invitationRepository) ByID(id string) (*model.Invitation, error) {
	return r.get(`SELECT * FROM user_invitations WHERE id = $1`, id)
}

func (r *invitationRepository) ByToken(token string) (*model.Invitation, error) {
	return r.get(`SELECT * FROM user_invitations WHERE token = $1`, token)
}

func (r *invitationRepository) PendingByEmail(email string) (*model.Invitation, error) {
	return r.get(`SELECT * FROM user_invitations WHERE email = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1`,
		email, model.InvitationPending)
}

// List returns pending invitations first, then the rest, newest first within each.
func (r *invitationRepository) List() ([]*model.Invitation, error) {
	var invs []*model.Invitation
	err := selectAll(r.db, &invs, `
		SELECT * FROM user_invitations
		ORDER BY CASE WHEN status = $1 THEN 0 ELSE 1 END, created_at DESC
	`, model.InvitationPending)
	if err != nil {
		return nil, err
	}
	return invs, nil
}

func (r *invitationRepository) Update(inv *model.Invitation) error {
	query := `UPDATE user_invitations
	          SET role = $1, status = $2, expires_at = $3, email_sent_at = $4, email_send_count = $5,
	              last_email_error = $6, accepted_at = $7
	          WHERE id = $8`

	result, err := exec(r.db, query,
		inv.Role,
		inv.Status,
		inv.ExpiresAt,
		inv.EmailSentAt,
		inv.EmailSendCount,
		inv.LastEmailError,
		inv.AcceptedAt,
		inv.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result, ErrInvitationNotFound)
}

// ExpireStale flips pending invitations past their expiry to expired.
func (r *invitationRepository) ExpireStale(now time.Time) (int64, error) {
	result, err := exec(r.db, `UPDATE user_invitations SET status = $1 WHERE status = $2 AND expires_at < $3`,
		model.InvitationExpired, model.InvitationPending, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
