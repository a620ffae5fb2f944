package model

import (
	"fmt"
	"slices"
	"strings"
)

// Scopes an API key can carry. Admin implies the other two.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"
)

// ValidScopes lists every scope in the order they are documented.
var ValidScopes = []string{ScopeRead, ScopeWrite, ScopeAdmin}

// DefaultScopes are granted to keys created without explicit scopes, enough
// to create and edit records but not to manage keys.
var DefaultScopes = []string{ScopeRead, ScopeWrite}

// InvalidScopeError reports a scope name outside ValidScopes.
type InvalidScopeError struct {
	Scope string
}

func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("invalid scope: %s. Valid scopes: %s", e.Scope, strings.Join(ValidScopes, ", "))
}

// NormalizeScopes trims and dedupes requested scopes, keeping their order.
// An empty result is returned as nil so callers can apply their own default.
func NormalizeScopes(requested []string) ([]string, error) {
	var out []string
	for _, s := range requested {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !slices.Contains(ValidScopes, s) {
			return nil, &InvalidScopeError{Scope: s}
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func grants(held []string, want string) bool {
	return slices.Contains(held, ScopeAdmin) || slices.Contains(held, want)
}
