package model

import (
	"slices"
	"time"
)

const (
	RoleAdmin     = "admin"
	RoleStaff     = "staff"
	RoleResident  = "resident"
	RoleAssociate = "associate"
)

// Roles lists assignable roles from most to least privileged.
var Roles = []string{RoleAdmin, RoleStaff, RoleResident, RoleAssociate}

func ValidRole(role string) bool {
	return slices.Contains(Roles, role)
}

type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	Role         string     `db:"role"`
	DisplayName  string     `db:"display_name"`
	PasswordHash *string    `db:"password_hash"` // Nullable for magic-link-only users
	LastLoginAt  *time.Time `db:"last_login_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasRole reports whether the user holds any of the given roles.
func (u *User) HasRole(roles ...string) bool {
	return slices.Contains(roles, u.Role)
}

// Name returns the display name, or the email when no name is set.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
