// Package testutil holds fixtures and helpers shared by unit and
// integration tests. Integration tests read their connection strings from
// the environment and skip when they are missing.
package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
)

// RequireEnv returns the value of key, skipping the test when it is unset.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		t.Skipf("%s not set", key)
	}
	return v
}

// ProjectRoot walks up from the working directory to the directory holding
// go.mod.
func ProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above working directory")
		}
		dir = parent
	}
}

// UniqueID returns prefix joined to a fresh lowercase ULID.
func UniqueID(prefix string) string {
	return prefix + "-" + strings.ToLower(ulid.Make().String())
}
