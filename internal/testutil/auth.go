package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/medconnect/backend/internal/auth"
)

// TestAuthConfig is the token configuration shared by handler and router tests.
func TestAuthConfig() auth.Config {
	return auth.Config{
		Secret:     []byte("testutil-secret-testutil-secret-32b"),
		Issuer:     "med-connect-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
}

// CreateTestVerifier returns a verifier and issuer that agree on TestAuthConfig.
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *auth.Issuer) {
	t.Helper()
	cfg := TestAuthConfig()
	return auth.NewVerifier(cfg), auth.NewIssuer(cfg)
}

// GenerateTestToken mints an access token for userID with role.
func GenerateTestToken(t *testing.T, issuer *auth.Issuer, userID, role string) string {
	t.Helper()
	pair, err := issuer.IssuePair(auth.Subject{UserID: userID, Email: userID + "@example.com", Role: role})
	if err != nil {
		t.Fatalf("Failed to issue test token: %v", err)
	}
	return pair.AccessToken
}

// Principal builds a principal without a token round-trip.
func Principal(userID, role string) *auth.Principal {
	return &auth.Principal{UserID: userID, Email: userID + "@example.com", Roles: []string{role}}
}

// WithPrincipal returns ctx carrying a principal for userID and role.
func WithPrincipal(ctx context.Context, userID, role string) context.Context {
	return auth.ContextWithPrincipal(ctx, Principal(userID, role))
}
