package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/snerberd/snerberd/internal/model"
)

// NewTestRecord returns an unsaved, valid record owned by owner.
func NewTestRecord(t testing.TB, owner string) *model.Record {
	t.Helper()
	return &model.Record{
		Name:            UniqueID("board"),
		Length:          156,
		ChannelBindings: true,
		Owner:           owner,
	}
}

// NewTestAPIKey returns an unsaved key row for userID. Its KeyHash is not a
// real hash, so it cannot authenticate; use MemoryKeys.Issue for that.
func NewTestAPIKey(t testing.TB, userID string) *model.APIKey {
	t.Helper()

	prefix := make([]byte, 3)
	if _, err := rand.Read(prefix); err != nil {
		t.Fatalf("random prefix: %v", err)
	}

	return &model.APIKey{
		ID:            UniqueID("key"),
		UserID:        userID,
		KeyHash:       UniqueID("hash"),
		KeyPrefix:     hex.EncodeToString(prefix),
		Scopes:        []string{model.ScopeRead, model.ScopeWrite},
		RateLimitTier: model.TierFree,
		Name:          "Test Key",
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}
