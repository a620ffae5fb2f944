package testutil

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/snerberd/snerberd/internal/auth"
	"github.com/snerberd/snerberd/internal/model"
)

// ErrKeyNotFound mirrors repository.ErrAPIKeyNotFound for the in-memory store.
var ErrKeyNotFound = errors.New("API key not found")

// MemoryKeys is an in-memory API key store for handler and middleware tests.
type MemoryKeys struct {
	mu       sync.Mutex
	keys     []*model.APIKey
	lastUsed map[string]int
	// NotFound is returned for unknown or already revoked keys.
	NotFound error
}

// NewMemoryKeys creates an empty key store that reports ErrKeyNotFound.
func NewMemoryKeys() *MemoryKeys {
	return &MemoryKeys{lastUsed: make(map[string]int), NotFound: ErrKeyNotFound}
}

// Issue generates a real key for userID, stores it and returns the plaintext.
func (m *MemoryKeys) Issue(t testing.TB, userID string, scopes ...string) string {
	t.Helper()

	gen, err := auth.GenerateAPIKey(auth.EnvTest)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if len(scopes) == 0 {
		scopes = model.DefaultScopes
	}

	key := &model.APIKey{
		ID:            UniqueID("key"),
		UserID:        userID,
		KeyHash:       gen.Hash,
		KeyPrefix:     gen.Prefix,
		Scopes:        slices.Clone(scopes),
		RateLimitTier: model.TierFree,
		CreatedAt:     time.Now().UTC(),
	}
	if err := m.CreateAPIKey(context.Background(), key); err != nil {
		t.Fatalf("store key: %v", err)
	}
	return gen.Plaintext
}

// CreateAPIKey stores a copy of key.
func (m *MemoryKeys) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	cp := *key
	m.mu.Lock()
	m.keys = append(m.keys, &cp)
	m.mu.Unlock()
	return nil
}

// GetAPIKeyByID returns a copy of the key with id.
func (m *MemoryKeys) GetAPIKeyByID(_ context.Context, id string) (*model.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range m.keys {
		if k.ID == id {
			cp := *k
			return &cp, nil
		}
	}
	return nil, m.NotFound
}

// GetAPIKeysByPrefix returns the active keys with prefix.
func (m *MemoryKeys) GetAPIKeysByPrefix(_ context.Context, prefix string) ([]*model.APIKey, error) {
	return m.filter(func(k *model.APIKey) bool {
		return k.KeyPrefix == prefix && !k.IsRevoked()
	}), nil
}

// ListAPIKeysByUserID returns userID's keys, newest first.
func (m *MemoryKeys) ListAPIKeysByUserID(_ context.Context, userID string) ([]*model.APIKey, error) {
	keys := m.filter(func(k *model.APIKey) bool { return k.UserID == userID })
	slices.Reverse(keys)
	return keys, nil
}

// RevokeAPIKey marks an active key revoked.
func (m *MemoryKeys) RevokeAPIKey(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range m.keys {
		if k.ID == id && !k.IsRevoked() {
			now := time.Now().UTC()
			k.RevokedAt = &now
			return nil
		}
	}
	return m.NotFound
}

// UpdateAPIKeyLastUsed counts uses per key.
func (m *MemoryKeys) UpdateAPIKeyLastUsed(_ context.Context, id string) error {
	m.mu.Lock()
	m.lastUsed[id]++
	m.mu.Unlock()
	return nil
}

// LastUsedCount reports how many times UpdateAPIKeyLastUsed ran for id.
func (m *MemoryKeys) LastUsedCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUsed[id]
}

func (m *MemoryKeys) filter(keep func(*model.APIKey) bool) []*model.APIKey {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.APIKey
	for _, k := range m.keys {
		if keep(k) {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out
}
