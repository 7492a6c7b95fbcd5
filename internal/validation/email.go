package validation

import (
	"errors"
	"net/mail"
)

var (
	ErrEmailRequired = errors.New("email address is required")
	ErrEmailTooLong  = errors.New("email address is too long")
	ErrEmailFormat   = errors.New("invalid email address format")
)

// ValidateEmail accepts a bare address only; "Name <addr>" forms are rejected
// since invitations and logins key on the address itself.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > 254 {
		return ErrEmailTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrEmailFormat
	}
	return nil
}
