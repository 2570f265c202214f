package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Principal holds identity extracted from a validated access token.
type Principal struct {
	UserID string
	Email  string
	Roles  []string
	Claims *Claims
}

// Role returns the principal's primary role.
func (p *Principal) Role() string {
	if len(p.Roles) == 0 {
		return ""
	}
	return p.Roles[0]
}

func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func (p *Principal) IsPatient() bool { return p.HasRole(RolePatient) }
func (p *Principal) IsDoctor() bool  { return p.HasRole(RoleDoctor) }
func (p *Principal) IsAdmin() bool   { return p.HasRole(RoleAdmin) }

// Claims is the JWT payload for both access and refresh tokens.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims is what the account service needs from a refresh token.
type RefreshClaims struct {
	UserID    string
	Role      string
	Email     string
	JTI       string
	ExpiresAt time.Time
}

var (
	ErrNoToken       = errors.New("no token provided")
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidIssuer = errors.New("invalid issuer")
	ErrMissingSub    = errors.New("missing sub claim")
	ErrWrongType     = errors.New("wrong token type")
)

// Verifier validates tokens signed with the shared HMAC secret.
type Verifier struct {
	cfg Config
	now func() time.Time
}

func NewVerifier(cfg Config) *Verifier {
	return &Verifier{cfg: cfg, now: time.Now}
}

func (v *Verifier) parse(tokenString, wantType string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrNoToken
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.cfg.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyExpiresAt(v.now(), true) {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != v.cfg.Issuer {
		return nil, ErrInvalidIssuer
	}
	if claims.Subject == "" {
		return nil, ErrMissingSub
	}
	if claims.Type != wantType {
		return nil, ErrWrongType
	}
	return claims, nil
}

// ParseAndVerifyToken validates an access token and returns its Principal.
func (v *Verifier) ParseAndVerifyToken(tokenString string) (*Principal, error) {
	claims, err := v.parse(tokenString, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	var roles []string
	if claims.Role != "" {
		roles = []string{claims.Role}
	}
	return &Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
		Roles:  roles,
		Claims: claims,
	}, nil
}

// ParseRefreshToken validates a refresh token.
func (v *Verifier) ParseRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims, err := v.parse(tokenString, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	rc := &RefreshClaims{
		UserID: claims.Subject,
		Role:   claims.Role,
		Email:  claims.Email,
		JTI:    claims.ID,
	}
	if claims.ExpiresAt != nil {
		rc.ExpiresAt = claims.ExpiresAt.Time
	}
	return rc, nil
}
