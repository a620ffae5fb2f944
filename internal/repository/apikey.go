package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/snerberd/snerberd/internal/model"
)

var ErrAPIKeyNotFound = errors.New("API key not found")

const selectAPIKey = `
	SELECT id, user_id, key_hash, key_prefix, scopes, rate_limit_tier, name,
	       revoked_at, last_used_at, created_at
	FROM api_keys`

// CreateAPIKey inserts key. It returns ErrUserNotFound when key.UserID
// does not exist.
func (r *Repository) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO api_keys (id, user_id, key_hash, key_prefix, scopes, rate_limit_tier, name, created_at)
		VALUES (@id, @user_id, @key_hash, @key_prefix, @scopes, @tier, @name, @created_at)`,
		pgx.NamedArgs{
			"id":         key.ID,
			"user_id":    key.UserID,
			"key_hash":   key.KeyHash,
			"key_prefix": key.KeyPrefix,
			"scopes":     pq.Array(key.Scopes),
			"tier":       key.RateLimitTier,
			"name":       key.Name,
			"created_at": key.CreatedAt,
		})
	switch {
	case isForeignKeyViolation(err):
		return ErrUserNotFound
	case err != nil:
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetAPIKeyByID returns the key with id, revoked or not.
func (r *Repository) GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error) {
	keys, err := r.listAPIKeys(ctx, selectAPIKey+` WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, ErrAPIKeyNotFound
	}
	return keys[0], nil
}

// GetAPIKeysByPrefix returns the active keys sharing prefix. Prefixes are
// not unique; the caller verifies each candidate's hash.
func (r *Repository) GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error) {
	return r.listAPIKeys(ctx, selectAPIKey+` WHERE key_prefix = $1 AND revoked_at IS NULL`, prefix)
}

// ListAPIKeysByUserID returns every key of a user, newest first.
func (r *Repository) ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error) {
	return r.listAPIKeys(ctx, selectAPIKey+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// RevokeAPIKey marks an active key revoked. Unknown and already revoked
// keys both return ErrAPIKeyNotFound.
func (r *Repository) RevokeAPIKey(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

func (r *Repository) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

func (r *Repository) listAPIKeys(ctx context.Context, query string, arg any) ([]*model.APIKey, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query api keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, scanAPIKey)
	if err != nil {
		return nil, fmt.Errorf("scan api keys: %w", err)
	}
	return keys, nil
}

func scanAPIKey(row pgx.CollectableRow) (*model.APIKey, error) {
	var k model.APIKey
	err := row.Scan(
		&k.ID, &k.UserID, &k.KeyHash, &k.KeyPrefix,
		pq.Array(&k.Scopes),
		&k.RateLimitTier, &k.Name,
		&k.RevokedAt, &k.LastUsedAt, &k.CreatedAt,
	)
	return &k, err
}
