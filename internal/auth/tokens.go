package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// TokenPair is returned to clients after a completed login or refresh.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	TokenType        string    `json:"tokenType"`
	ExpiresIn        int64     `json:"expiresIn"`
	RefreshJTI       string    `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// Subject identifies the user a token is issued for.
type Subject struct {
	UserID string
	Email  string
	Role   string
}

// Issuer signs access and refresh tokens with HS256.
type Issuer struct {
	cfg Config
	now func() time.Time
}

func NewIssuer(cfg Config) *Issuer {
	return &Issuer{cfg: cfg, now: time.Now}
}

func (i *Issuer) sign(sub Subject, typ, jti string, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(ttl)
	claims := Claims{
		Email: sub.Email,
		Role:  sub.Role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   sub.UserID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, exp, nil
}

// IssuePair creates a fresh access token and a refresh token with a new jti.
func (i *Issuer) IssuePair(sub Subject) (*TokenPair, error) {
	access, _, err := i.sign(sub, tokenTypeAccess, uuid.NewString(), i.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	jti := uuid.NewString()
	refresh, refreshExp, err := i.sign(sub, tokenTypeRefresh, jti, i.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int64(i.cfg.AccessTTL.Seconds()),
		RefreshJTI:       jti,
		RefreshExpiresAt: refreshExp,
	}, nil
}
