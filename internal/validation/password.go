package validation

import (
	"errors"
	"strings"
)

var (
	ErrPasswordShort  = errors.New("password must be at least 12 characters")
	ErrPasswordLong   = errors.New("password must not exceed 72 characters")
	ErrPasswordCommon = errors.New("password is too common, please choose a stronger one")
)

var commonPatterns = []string{
	"password", "123456", "qwerty", "admin", "letmein",
	"welcome", "spaces", "changeme", "iloveyou", "sunshine",
}

// ValidatePassword checks an account password chosen when accepting an
// invitation. 72 bytes is the bcrypt input limit.
func ValidatePassword(password string) error {
	if len(password) < 12 {
		return ErrPasswordShort
	}
	if len(password) > 72 {
		return ErrPasswordLong
	}

	lower := strings.ToLower(password)
	for _, pattern := range commonPatterns {
		if strings.Contains(lower, pattern) {
			return ErrPasswordCommon
		}
	}
	return nil
}
