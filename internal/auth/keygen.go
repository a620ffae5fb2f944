// Package auth issues and verifies API keys and carries the authenticated
// identity through request contexts.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// An API key reads snb_{env}_{prefix}_{secret}:
//
//	snb_live_7a9f3c_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
//
// The prefix is stored in clear and narrows the lookup; the whole key is
// only ever stored as an argon2id hash.
const (
	KeyScheme    = "snb"
	KeyPrefixLen = 6
	KeySecretLen = 32
)

const (
	EnvLive = "live"
	EnvTest = "test"
)

var ErrInvalidKeyFormat = errors.New("invalid API key format")

// EnvForAppEnv picks the key environment for a deployment. Only production
// issues live keys.
func EnvForAppEnv(appEnv string) string {
	if appEnv == "production" {
		return EnvLive
	}
	return EnvTest
}

// GeneratedKey is a fresh key. Plaintext goes to the caller once; Hash and
// Prefix are what gets stored.
type GeneratedKey struct {
	Plaintext string
	Hash      string
	Prefix    string
}

// GenerateAPIKey creates a key for env. Anything but "test" yields a live key.
func GenerateAPIKey(env string) (*GeneratedKey, error) {
	if env != EnvTest {
		env = EnvLive
	}

	buf := make([]byte, (KeyPrefixLen+KeySecretLen)/2)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	raw := hex.EncodeToString(buf)
	key := ParsedKey{Env: env, Prefix: raw[:KeyPrefixLen], Secret: raw[KeyPrefixLen:]}

	plaintext := key.String()
	hash, err := HashKey(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	return &GeneratedKey{Plaintext: plaintext, Hash: hash, Prefix: key.Prefix}, nil
}

// ParsedKey holds the parts of a well-formed key.
type ParsedKey struct {
	Env    string
	Prefix string
	Secret string
}

func (k ParsedKey) String() string {
	return strings.Join([]string{KeyScheme, k.Env, k.Prefix, k.Secret}, "_")
}

// ParseAPIKey splits key into its parts, rejecting anything that is not
// exactly scheme, a known env, and lowercase hex of the right lengths.
func ParseAPIKey(key string) (*ParsedKey, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 4 || parts[0] != KeyScheme {
		return nil, ErrInvalidKeyFormat
	}
	k := &ParsedKey{Env: parts[1], Prefix: parts[2], Secret: parts[3]}
	if k.Env != EnvLive && k.Env != EnvTest {
		return nil, ErrInvalidKeyFormat
	}
	if !isLowerHex(k.Prefix, KeyPrefixLen) || !isLowerHex(k.Secret, KeySecretLen) {
		return nil, ErrInvalidKeyFormat
	}
	return k, nil
}

func ValidateKeyFormat(key string) bool {
	_, err := ParseAPIKey(key)
	return err == nil
}

func isLowerHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
