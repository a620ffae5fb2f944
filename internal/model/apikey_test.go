package model

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestGrants(t *testing.T) {
	tests := []struct {
		held []string
		want string
		ok   bool
	}{
		{[]string{ScopeRead, ScopeWrite}, ScopeRead, true},
		{[]string{ScopeRead}, ScopeWrite, false},
		{[]string{ScopeAdmin}, ScopeRead, true},
		{[]string{ScopeAdmin}, ScopeWrite, true},
		{[]string{ScopeWrite}, ScopeAdmin, false},
		{nil, ScopeRead, false},
	}

	for _, tt := range tests {
		key := &APIKey{Scopes: tt.held}
		if got := key.HasScope(tt.want); got != tt.ok {
			t.Errorf("APIKey%v.HasScope(%s) = %v, want %v", tt.held, tt.want, got, tt.ok)
		}
		ac := &AuthContext{Scopes: tt.held}
		if got := ac.HasScope(tt.want); got != tt.ok {
			t.Errorf("AuthContext%v.HasScope(%s) = %v, want %v", tt.held, tt.want, got, tt.ok)
		}
	}
}

func TestNormalizeScopes(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []string
		wantBad string
	}{
		{"empty", nil, nil, ""},
		{"blanks only", []string{" ", ""}, nil, ""},
		{"trims and dedupes", []string{" read", "write", "read "}, []string{ScopeRead, ScopeWrite}, ""},
		{"unknown", []string{"read", "root"}, nil, "root"},
		{"case sensitive", []string{"Admin"}, nil, "Admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeScopes(tt.in)
			if tt.wantBad != "" {
				var scopeErr *InvalidScopeError
				if !errors.As(err, &scopeErr) || scopeErr.Scope != tt.wantBad {
					t.Fatalf("error = %v, want InvalidScopeError for %q", err, tt.wantBad)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("NormalizeScopes(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultScopes_AllowRecordWrites(t *testing.T) {
	key := &APIKey{Scopes: DefaultScopes}
	if !key.HasScope(ScopeWrite) {
		t.Error("default scopes must allow creating records")
	}
	if key.HasScope(ScopeAdmin) {
		t.Error("default scopes must not grant admin")
	}
}

func TestLimitsFor(t *testing.T) {
	tests := []struct {
		tier      string
		rpm       int
		burst     int
		unlimited bool
	}{
		{TierFree, 60, 10, false},
		{TierPro, 600, 50, false},
		{TierUnlimited, 0, 0, true},
		{"gold", 60, 10, false},
	}

	for _, tt := range tests {
		got := (&APIKey{RateLimitTier: tt.tier}).GetRateLimitConfig()
		if got.RequestsPerMinute != tt.rpm || got.Burst != tt.burst {
			t.Errorf("%s: got %+v, want rpm=%d burst=%d", tt.tier, got, tt.rpm, tt.burst)
		}
		if got.Unlimited() != tt.unlimited {
			t.Errorf("%s: Unlimited() = %v", tt.tier, got.Unlimited())
		}
	}
}

func TestAPIKey_AuthContext(t *testing.T) {
	key := &APIKey{
		ID:            "01HKEY",
		UserID:        "01HUSER",
		KeyPrefix:     "a1b2c3",
		Scopes:        []string{ScopeRead},
		RateLimitTier: TierPro,
	}

	ac := key.AuthContext()
	if ac.KeyID != key.ID || ac.UserID != key.UserID || ac.KeyPrefix != key.KeyPrefix {
		t.Errorf("identity not carried over: %+v", ac)
	}
	if ac.RateLimitTier != TierPro || !ac.HasScope(ScopeRead) {
		t.Errorf("scopes or tier not carried over: %+v", ac)
	}
}

func TestAPIKey_ToResponse(t *testing.T) {
	revoked := time.Now()
	key := &APIKey{ID: "01HKEY", KeyPrefix: "a1b2c3", KeyHash: "secret", RevokedAt: &revoked}

	resp := key.ToResponse()
	if resp.ID != key.ID || resp.KeyPrefix != key.KeyPrefix {
		t.Errorf("ToResponse() = %+v", resp)
	}
	if !resp.Revoked {
		t.Error("revoked key reported as active")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Rider@Example.COM "); got != "rider@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}
