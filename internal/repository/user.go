package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/snerberd/snerberd/internal/model"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

// CreateUser inserts user as given. The email must already be normalized.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, created_at) VALUES ($1, $2, $3)`,
		user.ID, user.Email, user.CreatedAt)
	switch {
	case isUniqueViolation(err):
		return ErrEmailExists
	case err != nil:
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.getUser(ctx, `SELECT id, email, created_at FROM users WHERE id = $1`, id)
}

// GetUserByEmail looks a user up by the normalized form of email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, `SELECT id, email, created_at FROM users WHERE email = $1`, model.NormalizeEmail(email))
}

// GetOrCreateUser returns the user owning email, creating one if needed.
// The no-op update makes RETURNING yield the existing row on conflict, so
// concurrent callers all get the same user.
func (r *Repository) GetOrCreateUser(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, `
		INSERT INTO users (id, email, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, created_at`,
		ulid.Make().String(), model.NormalizeEmail(email), time.Now().UTC())
}

func (r *Repository) getUser(ctx context.Context, query string, args ...any) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Email, &u.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
