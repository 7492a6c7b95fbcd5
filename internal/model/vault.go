package model

import "time"

type VaultEntry struct {
	ID           string    `db:"id"`
	Service      string    `db:"service"`
	Category     string    `db:"category"`
	Username     string    `db:"username"`
	PasswordEnc  string    `db:"password_enc"`
	URL          string    `db:"url"`
	Notes        string    `db:"notes"`
	SpaceID      *string   `db:"space_id"`
	DisplayOrder int       `db:"display_order"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`

	// Joined (not a column of vault_entries)
	SpaceName *string `db:"space_name"`
}

func (e *VaultEntry) HasPassword() bool {
	return e.PasswordEnc != ""
}

// VaultFilter narrows the vault listing. Empty fields match everything.
type VaultFilter struct {
	Category        string
	SpaceID         string
	Search          string
	IncludeInactive bool
}

// VaultGroup is one section of the grouped-by-space vault view.
type VaultGroup struct {
	SpaceID   string
	SpaceName string
	Entries   []*VaultEntry
}
