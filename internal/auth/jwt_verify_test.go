package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func testConfig() Config {
	return Config{
		Secret:     []byte("test-secret-test-secret-test-secret!"),
		Issuer:     "med-connect-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
}

func testSubject() Subject {
	return Subject{UserID: "user-123", Email: "doc@example.com", Role: RoleDoctor}
}

func TestIssuePair_RoundTrip(t *testing.T) {
	cfg := testConfig()
	pair, err := NewIssuer(cfg).IssuePair(testSubject())
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("Expected token type Bearer, got %s", pair.TokenType)
	}
	if pair.ExpiresIn != 900 {
		t.Errorf("Expected ExpiresIn 900, got %d", pair.ExpiresIn)
	}

	ver := NewVerifier(cfg)
	pr, err := ver.ParseAndVerifyToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("Access token rejected: %v", err)
	}
	if pr.UserID != "user-123" || pr.Email != "doc@example.com" {
		t.Errorf("Unexpected principal: %+v", pr)
	}
	if !pr.IsDoctor() || pr.IsPatient() || pr.Role() != RoleDoctor {
		t.Errorf("Unexpected roles: %v", pr.Roles)
	}

	rc, err := ver.ParseRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh token rejected: %v", err)
	}
	if rc.JTI != pair.RefreshJTI {
		t.Errorf("Expected jti %s, got %s", pair.RefreshJTI, rc.JTI)
	}
	if !rc.ExpiresAt.Equal(pair.RefreshExpiresAt.Truncate(time.Second)) {
		t.Errorf("Expected refresh expiry %v, got %v", pair.RefreshExpiresAt, rc.ExpiresAt)
	}
}

func TestVerifier_TokenTypesAreNotInterchangeable(t *testing.T) {
	cfg := testConfig()
	pair, err := NewIssuer(cfg).IssuePair(testSubject())
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	ver := NewVerifier(cfg)

	if _, err := ver.ParseAndVerifyToken(pair.RefreshToken); !errors.Is(err, ErrWrongType) {
		t.Errorf("Expected ErrWrongType for refresh token used as access, got %v", err)
	}
	if _, err := ver.ParseRefreshToken(pair.AccessToken); !errors.Is(err, ErrWrongType) {
		t.Errorf("Expected ErrWrongType for access token used as refresh, got %v", err)
	}
}

func TestVerifier_Expired(t *testing.T) {
	cfg := testConfig()
	iss := NewIssuer(cfg)
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	pair, err := iss.IssuePair(testSubject())
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if _, err := NewVerifier(cfg).ParseAndVerifyToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifier_WrongSecret(t *testing.T) {
	cfg := testConfig()
	pair, err := NewIssuer(cfg).IssuePair(testSubject())
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	other := cfg
	other.Secret = []byte("another-secret-another-secret-another")
	if _, err := NewVerifier(other).ParseAndVerifyToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifier_WrongIssuer(t *testing.T) {
	cfg := testConfig()
	pair, err := NewIssuer(cfg).IssuePair(testSubject())
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	other := cfg
	other.Issuer = "someone-else"
	if _, err := NewVerifier(other).ParseAndVerifyToken(pair.AccessToken); !errors.Is(err, ErrInvalidIssuer) {
		t.Errorf("Expected ErrInvalidIssuer, got %v", err)
	}
}

func TestVerifier_MissingSubject(t *testing.T) {
	cfg := testConfig()
	claims := Claims{
		Role: RolePatient,
		Type: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	if _, err := NewVerifier(cfg).ParseAndVerifyToken(tok); !errors.Is(err, ErrMissingSub) {
		t.Errorf("Expected ErrMissingSub, got %v", err)
	}
}

func TestVerifier_RejectsNoneAlgorithm(t *testing.T) {
	cfg := testConfig()
	claims := Claims{
		Type: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("Failed to build token: %v", err)
	}
	if _, err := NewVerifier(cfg).ParseAndVerifyToken(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for alg=none, got %v", err)
	}
}

func TestVerifier_EmptyToken(t *testing.T) {
	if _, err := NewVerifier(testConfig()).ParseAndVerifyToken("  "); !errors.Is(err, ErrNoToken) {
		t.Errorf("Expected ErrNoToken, got %v", err)
	}
}

func TestIssuePair_UniqueRefreshJTI(t *testing.T) {
	iss := NewIssuer(testConfig())
	a, err := iss.IssuePair(testSubject())
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	b, err := iss.IssuePair(testSubject())
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if a.RefreshJTI == b.RefreshJTI {
		t.Error("Expected distinct refresh jti per pair")
	}
}

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		password string
		want     error
	}{
		{"short1", ErrPasswordTooShort},
		{"onlyletters", ErrPasswordTooWeak},
		{"12345678", ErrPasswordTooWeak},
		{"goodpass1", nil},
		{"mötdepasse9", nil},
	}
	for _, tc := range cases {
		if got := ValidatePassword(tc.password); !errors.Is(got, tc.want) {
			t.Errorf("ValidatePassword(%q) = %v, want %v", tc.password, got, tc.want)
		}
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	// Minimum cost keeps the test fast; production uses bcryptCost.
	hash, err := hashWithCost("goodpass1", 4)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !CheckPassword(hash, "goodpass1") {
		t.Error("Expected matching password to check")
	}
	if CheckPassword(hash, "goodpass2") {
		t.Error("Expected wrong password to fail")
	}
}
