// Package repository contains the persistence layer. Repositories hold no
// connection of their own: every method takes an explicit handle (a shard
// pool or a transaction on one), so a single repository instance serves all
// regions and the active shard is always visible at the call site.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edunexus/edunexus-api/internal/models"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

// UserRepository manages persistence for user accounts.
type UserRepository struct{}

// NewUserRepository constructs a UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// Create inserts a new account and fills in the generated ID. The email must
// be unused on this shard; the same address may exist on other regions.
func (r *UserRepository) Create(ctx context.Context, q sqlx.ExtContext, user *models.User) error {
	query := `INSERT INTO users (name, email, password, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING user_id, created_at, updated_at`
	err := sqlx.GetContext(ctx, q, user, query, user.Name, user.Email, user.PasswordHash, user.Role)
	if isUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, "email already registered in this region")
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID fetches a user by their per-shard ID.
func (r *UserRepository) FindByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.User, error) {
	var user models.User
	query := `SELECT user_id, name, email, password, role, created_at, updated_at FROM users WHERE user_id = $1`
	if err := sqlx.GetContext(ctx, q, &user, query, id); err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &user, nil
}

// FindByEmail fetches a user by email on one shard.
func (r *UserRepository) FindByEmail(ctx context.Context, q sqlx.ExtContext, email string) (*models.User, error) {
	var user models.User
	query := `SELECT user_id, name, email, password, role, created_at, updated_at FROM users WHERE email = $1`
	if err := sqlx.GetContext(ctx, q, &user, query, email); err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// UpdateRole changes a user's role in place.
func (r *UserRepository) UpdateRole(ctx context.Context, q sqlx.ExtContext, id int64, role models.UserRole) error {
	res, err := q.ExecContext(ctx, `UPDATE users SET role = $1, updated_at = NOW() WHERE user_id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
