package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edunexus/edunexus-api/internal/models"
)

// TokenRepository persists refresh tokens on the user's home shard.
type TokenRepository struct{}

// NewTokenRepository constructs a TokenRepository.
func NewTokenRepository() *TokenRepository {
	return &TokenRepository{}
}

// Create stores a new refresh token session.
func (r *TokenRepository) Create(ctx context.Context, q sqlx.ExtContext, token *models.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (user_id, token, expires_at, created_at, revoked)
        VALUES ($1, $2, $3, NOW(), FALSE)
        RETURNING id, created_at`
	if err := sqlx.GetContext(ctx, q, token, query, token.UserID, token.Token, token.ExpiresAt); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindActive fetches an unexpired, unrevoked refresh token by value.
func (r *TokenRepository) FindActive(ctx context.Context, q sqlx.ExtContext, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	query := `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at
        FROM refresh_tokens
        WHERE token = $1 AND revoked = FALSE AND expires_at > NOW()`
	if err := sqlx.GetContext(ctx, q, &rt, query, token); err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// Revoke marks one refresh token as unusable.
func (r *TokenRepository) Revoke(ctx context.Context, q sqlx.ExtContext, token string) error {
	query := `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE token = $1 AND revoked = FALSE`
	if _, err := q.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser invalidates every session of one user on this shard.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, q sqlx.ExtContext, userID int64) error {
	query := `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE user_id = $1 AND revoked = FALSE`
	if _, err := q.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}
