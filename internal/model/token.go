package model

import "time"

// TokenTypeMagicLink is the only single-use token the admin issues.
const TokenTypeMagicLink = "magic_link"

// Token is a single-use sign-in secret. Rows are consumed, never reused,
// and pruned by `spaces prune-tokens`.
type Token struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	Type      string     `db:"type"`
	Token     string     `db:"token"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}

func (t *Token) IsUsed() bool {
	return t.UsedAt != nil
}
