// Package model holds the entities shared by storage, services and HTTP
// handlers: records, users, API keys and the per-request auth context.
package model

import "time"

// APIKey is a bearer credential owned by a user. Only an argon2id hash of
// the plaintext is stored.
type APIKey struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	KeyHash       string     `json:"-"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	Name          string     `json:"name,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (k *APIKey) IsRevoked() bool { return k.RevokedAt != nil }

func (k *APIKey) HasScope(scope string) bool { return grants(k.Scopes, scope) }

// GetRateLimitConfig returns the bucket for the key's tier.
func (k *APIKey) GetRateLimitConfig() RateLimitConfig { return LimitsFor(k.RateLimitTier) }

// AuthContext returns the identity a request authenticated with k acts as.
func (k *APIKey) AuthContext() *AuthContext {
	return &AuthContext{
		KeyID:         k.ID,
		KeyPrefix:     k.KeyPrefix,
		UserID:        k.UserID,
		Scopes:        k.Scopes,
		RateLimitTier: k.RateLimitTier,
	}
}

// AuthContext identifies the requester of an authenticated request.
// UserID is what record owners are compared against.
type AuthContext struct {
	KeyID         string
	KeyPrefix     string
	UserID        string
	Scopes        []string
	RateLimitTier string
}

func (a *AuthContext) HasScope(scope string) bool { return grants(a.Scopes, scope) }

// APIKeyCreateRequest is the body of POST /api-keys.
type APIKeyCreateRequest struct {
	Name   string   `json:"name,omitempty"`
	Scopes []string `json:"scopes"`
}

// APIKeyResponse describes a key without its secret.
type APIKeyResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	Revoked       bool       `json:"revoked"`
}

func (k *APIKey) ToResponse() APIKeyResponse {
	return APIKeyResponse{
		ID:            k.ID,
		Name:          k.Name,
		KeyPrefix:     k.KeyPrefix,
		Scopes:        k.Scopes,
		RateLimitTier: k.RateLimitTier,
		CreatedAt:     k.CreatedAt,
		LastUsedAt:    k.LastUsedAt,
		Revoked:       k.IsRevoked(),
	}
}

// APIKeyCreateResponse carries the plaintext key. It is sent once, on
// creation or rotation.
type APIKeyCreateResponse struct {
	ID            string    `json:"id"`
	Key           string    `json:"key"`
	Name          string    `json:"name,omitempty"`
	KeyPrefix     string    `json:"key_prefix"`
	Scopes        []string  `json:"scopes"`
	RateLimitTier string    `json:"rate_limit_tier"`
	CreatedAt     time.Time `json:"created_at"`
}

type APIKeyRotateResponse struct {
	OldKeyID        string               `json:"old_key_id"`
	OldKeyRevokedAt time.Time            `json:"old_key_revoked_at"`
	NewKey          APIKeyCreateResponse `json:"new_key"`
}
