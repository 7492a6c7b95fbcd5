package model

import "time"

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRevoked  = "revoked"
	InvitationExpired  = "expired"
)

type Invitation struct {
	ID             string     `db:"id"`
	Email          string     `db:"email"`
	Role           string     `db:"role"`
	Status         string     `db:"status"`
	Token          string     `db:"token"`
	InvitedBy      *string    `db:"invited_by"`
	ExpiresAt      time.Time  `db:"expires_at"`
	EmailSentAt    *time.Time `db:"email_sent_at"`
	EmailSendCount int        `db:"email_send_count"`
	LastEmailError string     `db:"last_email_error"`
	AcceptedAt     *time.Time `db:"accepted_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

func (i *Invitation) IsPending() bool {
	return i.Status == InvitationPending
}

func (i *Invitation) IsExpiredAt(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// EmailFailed reports whether the most recent send attempt failed.
func (i *Invitation) EmailFailed() bool {
	return i.LastEmailError != ""
}
