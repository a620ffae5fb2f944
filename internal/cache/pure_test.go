package cache

import (
	"reflect"
	"strings"
	"testing"

	"github.com/snerberd/snerberd/internal/model"
)

func TestKeyLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"auth context", authKey("abc"), "snerberd:auth:ctx:abc"},
		{"auth index", authIndexKey("key-1"), "snerberd:auth:key:key-1"},
		{"api limit", apiLimitKey("key-1"), "snerberd:limit:key:key-1"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s key = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestIPLimitKey_HidesAddress(t *testing.T) {
	t.Parallel()

	for _, ip := range []string{"192.168.1.100", "::1", "2001:db8::7334", ""} {
		key := ipLimitKey(ip)
		suffix := strings.TrimPrefix(key, "snerberd:limit:ip:")
		if suffix == key {
			t.Fatalf("ipLimitKey(%q) = %q, missing namespace", ip, key)
		}
		if len(suffix) != 16 {
			t.Errorf("ipLimitKey(%q) digest length = %d, want 16", ip, len(suffix))
		}
		if ip != "" && strings.Contains(key, ip) {
			t.Errorf("ipLimitKey(%q) leaks the address: %q", ip, key)
		}
	}
}

func TestIPLimitKey_Distinct(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"192.168.1.1", "192.168.1.2"},
		{"127.0.0.1", "::1"},
		{"8.8.8.8", "10.0.0.1"},
	}
	for _, p := range pairs {
		if ipLimitKey(p[0]) == ipLimitKey(p[1]) {
			t.Errorf("%s and %s share a bucket", p[0], p[1])
		}
	}
	if ipLimitKey("10.0.0.1") != ipLimitKey("10.0.0.1") {
		t.Error("same address must map to the same bucket")
	}
}

func TestAuthContextEncoding(t *testing.T) {
	t.Parallel()

	in := &model.AuthContext{
		KeyID:         "key-1",
		KeyPrefix:     "a1b2c3",
		UserID:        "user-1",
		Scopes:        []string{"read", "write"},
		RateLimitTier: "default",
	}

	data, err := encodeAuthContext(in)
	if err != nil {
		t.Fatalf("encodeAuthContext() error = %v", err)
	}

	out := decodeAuthContext(data)
	if !reflect.DeepEqual(in, out) {
		t.Errorf("decoded = %+v, want %+v", out, in)
	}
}

func TestDecodeAuthContext_Rejects(t *testing.T) {
	t.Parallel()

	for name, raw := range map[string]string{
		"garbage":  "not json",
		"no owner": `{"key_id":"key-1","scopes":["read"]}`,
		"array":    `[]`,
	} {
		if got := decodeAuthContext([]byte(raw)); got != nil {
			t.Errorf("%s: decodeAuthContext() = %+v, want nil", name, got)
		}
	}
}
