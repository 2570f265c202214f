package auth

import (
	"time"

	"github.com/medconnect/backend/internal/config"
)

// Roles known to the platform.
const (
	RolePatient = "PATIENT"
	RoleDoctor  = "DOCTOR"
	RoleAdmin   = "ADMIN"
)

func KnownRole(role string) bool {
	switch role {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Config holds token signing configuration.
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ConfigFrom derives the token configuration from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}
}
