package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alpacapps/spaces/internal/model"
)

var (
	ErrTokenNotFound = errors.New("token not found")
)

type TokenRepository interface {
	Create(token *model.Token) error
	ConsumeToken(token, tokenType string) (*model.Token, error)
	DeleteByUserAndType(userID, tokenType string) error
	CleanupExpired(olderThan time.Duration) (int64, error)
}

type tokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(token *model.Token) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := exec(r.db, `
		INSERT INTO tokens (id, user_id, type, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, token.ID, token.UserID, token.Type, token.Token, token.ExpiresAt, token.CreatedAt)
	return err
}

// ConsumeToken marks an unused, unexpired token of the given type as used
// in a single UPDATE, so only one of two concurrent requests can succeed.
func (r *tokenRepository) ConsumeToken(token, tokenType string) (*model.Token, error) {
	var t model.Token
	now := time.Now()

	err := getOne(r.db, &t, `
		UPDATE tokens
		SET used_at = $1
		WHERE token = $2
		AND type = $3
		AND used_at IS NULL
		AND expires_at > $1
		RETURNING *
	`, now, token, tokenType)
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepository) DeleteByUserAndType(userID, tokenType string) error {
	_, err := exec(r.db, `DELETE FROM tokens WHERE user_id = $1 AND type = $2 AND used_at IS NULL`, userID, tokenType)
	return err
}

// CleanupExpired removes used and expired tokens older than the given age.
// Run from `spaces prune-tokens`.
func (r *tokenRepository) CleanupExpired(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := exec(r.db, `
		DELETE FROM tokens
		WHERE (used_at IS NOT NULL AND used_at < $1)
		   OR (expires_at < $1)
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
