package auth

import (
	"context"
	"testing"

	"github.com/snerberd/snerberd/internal/model"
)

func TestAuthContextRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if AuthFromContext(ctx) != nil {
		t.Fatal("empty context should carry no auth")
	}
	if UserIDFromContext(ctx) != "" || KeyIDFromContext(ctx) != "" {
		t.Fatal("anonymous context should yield empty ids")
	}

	ctx = ContextWithAuth(ctx, &model.AuthContext{KeyID: "key-1", UserID: "user-a"})

	if got := UserIDFromContext(ctx); got != "user-a" {
		t.Errorf("UserIDFromContext = %q, want user-a", got)
	}
	if got := KeyIDFromContext(ctx); got != "key-1" {
		t.Errorf("KeyIDFromContext = %q, want key-1", got)
	}
}
