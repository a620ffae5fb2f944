package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/snerberd/snerberd/internal/auth"
	"github.com/snerberd/snerberd/internal/model"
	"github.com/snerberd/snerberd/internal/repository"
)

const (
	codeKeyNotFound  = "KEY_NOT_FOUND"
	codeInvalidScope = "INVALID_SCOPE"

	msgKeyNotFound = "API key not found or already revoked"
)

// APIKeyStore persists API keys.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error)
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
}

// KeyInvalidator drops cached auth contexts of a key that stopped being valid.
type KeyInvalidator interface {
	InvalidateAPIKey(ctx context.Context, keyID string) error
}

// APIKeyHandler lets a user manage their own API keys. Keys of other users
// are reported as not found.
type APIKeyHandler struct {
	logger      *slog.Logger
	keys        APIKeyStore
	invalidator KeyInvalidator
	env         string
}

// NewAPIKeyHandler issues keys for the key environment matching appEnv.
// invalidator may be nil.
func NewAPIKeyHandler(logger *slog.Logger, keys APIKeyStore, invalidator KeyInvalidator, appEnv string) *APIKeyHandler {
	return &APIKeyHandler{
		logger:      logger,
		keys:        keys,
		invalidator: invalidator,
		env:         auth.EnvForAppEnv(appEnv),
	}
}

// CreateAPIKey handles POST /api-keys. An empty body creates a key with
// the default scopes.
func (h *APIKeyHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	caller := auth.AuthFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return
	}

	var req model.APIKeyCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeInvalidJSON, "request body is not valid JSON")
		return
	}

	scopes, err := model.NormalizeScopes(req.Scopes)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidScope, err.Error())
		return
	}
	if scopes == nil {
		scopes = slices.Clone(model.DefaultScopes)
	}

	key, plaintext, ok := h.issue(w, r, &model.APIKey{
		UserID:        caller.UserID,
		Name:          req.Name,
		Scopes:        scopes,
		RateLimitTier: model.TierFree,
	})
	if !ok {
		return
	}

	h.logger.Info("API key created",
		slog.String("key_id", key.ID),
		slog.String("key_prefix", key.KeyPrefix),
		slog.String("user_id", key.UserID),
	)
	writeJSON(w, http.StatusCreated, createResponse(key, plaintext))
}

// ListAPIKeys handles GET /api-keys. Secrets and hashes are never listed.
func (h *APIKeyHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	caller := auth.AuthFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return
	}

	keys, err := h.keys.ListAPIKeysByUserID(r.Context(), caller.UserID)
	if err != nil {
		h.internal(w, "failed to list API keys", err)
		return
	}

	out := make([]model.APIKeyResponse, len(keys))
	for i, k := range keys {
		out[i] = k.ToResponse()
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": out})
}

// RevokeAPIKey handles DELETE /api-keys/{key_id}.
func (h *APIKeyHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	key, ok := h.ownedActiveKey(w, r)
	if !ok {
		return
	}

	switch err := h.keys.RevokeAPIKey(r.Context(), key.ID); {
	case errors.Is(err, repository.ErrAPIKeyNotFound):
		writeError(w, http.StatusNotFound, codeKeyNotFound, msgKeyNotFound)
		return
	case err != nil:
		h.internal(w, "failed to revoke API key", err)
		return
	}
	h.invalidate(r.Context(), key.ID)

	h.logger.Info("API key revoked", slog.String("key_id", key.ID), slog.String("user_id", key.UserID))
	w.WriteHeader(http.StatusNoContent)
}

// RotateAPIKey handles POST /api-keys/{key_id}/rotate. The replacement keeps
// the name, scopes and tier of the old key, and is stored before the old
// key is revoked so the user is never left without a working key. If the
// old key cannot be revoked the replacement is withdrawn again.
func (h *APIKeyHandler) RotateAPIKey(w http.ResponseWriter, r *http.Request) {
	old, ok := h.ownedActiveKey(w, r)
	if !ok {
		return
	}

	key, plaintext, ok := h.issue(w, r, &model.APIKey{
		UserID:        old.UserID,
		Name:          old.Name,
		Scopes:        old.Scopes,
		RateLimitTier: old.RateLimitTier,
	})
	if !ok {
		return
	}

	// A concurrent revoke or rotate of the same key loses here.
	switch err := h.keys.RevokeAPIKey(r.Context(), old.ID); {
	case errors.Is(err, repository.ErrAPIKeyNotFound):
		h.withdraw(r.Context(), key.ID)
		writeError(w, http.StatusNotFound, codeKeyNotFound, msgKeyNotFound)
		return
	case err != nil:
		h.withdraw(r.Context(), key.ID)
		h.internal(w, "failed to revoke rotated API key", err)
		return
	}
	revokedAt := time.Now().UTC()
	h.invalidate(r.Context(), old.ID)

	h.logger.Info("API key rotated",
		slog.String("old_key_id", old.ID),
		slog.String("new_key_id", key.ID),
		slog.String("user_id", key.UserID),
	)
	writeJSON(w, http.StatusCreated, model.APIKeyRotateResponse{
		OldKeyID:        old.ID,
		OldKeyRevokedAt: revokedAt,
		NewKey:          createResponse(key, plaintext),
	})
}

// withdraw revokes a replacement key whose plaintext was never handed out.
func (h *APIKeyHandler) withdraw(ctx context.Context, keyID string) {
	if err := h.keys.RevokeAPIKey(ctx, keyID); err != nil {
		h.logger.Error("failed to withdraw replacement API key",
			slog.String("key_id", keyID),
			slog.String("error", err.Error()),
		)
	}
}

// issue fills in the generated fields of key and stores it. On failure it
// writes a 500 and returns false.
func (h *APIKeyHandler) issue(w http.ResponseWriter, r *http.Request, key *model.APIKey) (*model.APIKey, string, bool) {
	gen, err := auth.GenerateAPIKey(h.env)
	if err != nil {
		h.internal(w, "failed to generate API key", err)
		return nil, "", false
	}

	key.ID = ulid.Make().String()
	key.KeyHash = gen.Hash
	key.KeyPrefix = gen.Prefix
	key.CreatedAt = time.Now().UTC()

	if err := h.keys.CreateAPIKey(r.Context(), key); err != nil {
		h.internal(w, "failed to store API key", err)
		return nil, "", false
	}
	return key, gen.Plaintext, true
}

// ownedActiveKey loads {key_id} and writes a 404 unless it is an active
// key of the caller.
func (h *APIKeyHandler) ownedActiveKey(w http.ResponseWriter, r *http.Request) (*model.APIKey, bool) {
	caller := auth.AuthFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return nil, false
	}

	key, err := h.keys.GetAPIKeyByID(r.Context(), chi.URLParam(r, "key_id"))
	switch {
	case err != nil && !errors.Is(err, repository.ErrAPIKeyNotFound):
		h.internal(w, "failed to load API key", err)
		return nil, false
	case err != nil, key.UserID != caller.UserID, key.IsRevoked():
		writeError(w, http.StatusNotFound, codeKeyNotFound, msgKeyNotFound)
		return nil, false
	}
	return key, true
}

func (h *APIKeyHandler) invalidate(ctx context.Context, keyID string) {
	if h.invalidator == nil {
		return
	}
	if err := h.invalidator.InvalidateAPIKey(ctx, keyID); err != nil {
		h.logger.Warn("failed to invalidate cached API key",
			slog.String("key_id", keyID),
			slog.String("error", err.Error()),
		)
	}
}

func (h *APIKeyHandler) internal(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, codeInternal, msg)
}

func createResponse(key *model.APIKey, plaintext string) model.APIKeyCreateResponse {
	return model.APIKeyCreateResponse{
		ID:            key.ID,
		Key:           plaintext,
		Name:          key.Name,
		KeyPrefix:     key.KeyPrefix,
		Scopes:        key.Scopes,
		RateLimitTier: key.RateLimitTier,
		CreatedAt:     key.CreatedAt,
	}
}
