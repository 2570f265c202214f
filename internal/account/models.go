package account

import (
	"net/mail"
	"strings"
	"time"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/users"
)

// RegisterRequest creates a PATIENT or DOCTOR account.
type RegisterRequest struct {
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Role          string  `json:"role"`
	PhoneNumber   *string `json:"phoneNumber,omitempty"`
	DateOfBirth   *string `json:"dateOfBirth,omitempty"`
	Specialty     *string `json:"specialty,omitempty"`
	LicenseNumber *string `json:"licenseNumber,omitempty"`
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// Normalize trims input and checks it, returning the first problem found.
func (r *RegisterRequest) Normalize() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Role = strings.ToUpper(strings.TrimSpace(r.Role))

	if _, err := mail.ParseAddress(r.Email); err != nil || strings.ContainsAny(r.Email, " <>") {
		return ErrInvalidEmail
	}
	if err := auth.ValidatePassword(r.Password); err != nil {
		return weakPassword(err)
	}
	if r.FirstName == "" {
		return users.ErrMissingFirstName
	}
	if r.LastName == "" {
		return users.ErrMissingLastName
	}
	switch r.Role {
	case auth.RolePatient:
		if r.Specialty != nil || r.LicenseNumber != nil {
			return users.ErrSpecialtyNotAllowed
		}
	case auth.RoleDoctor:
		if blank(r.Specialty) || blank(r.LicenseNumber) {
			return ErrDoctorDetailsRequired
		}
	default:
		return ErrInvalidRole
	}
	if r.DateOfBirth != nil {
		if _, err := time.Parse("2006-01-02", *r.DateOfBirth); err != nil {
			return users.ErrInvalidDateOfBirth
		}
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is either a token pair or a pending 2FA challenge.
type LoginResult struct {
	TwoFactorRequired bool        `json:"twoFactorRequired"`
	ChallengeID       string      `json:"challengeId,omitempty"`
	ExpiresAt         *time.Time  `json:"challengeExpiresAt,omitempty"`
	User              *users.User `json:"user,omitempty"`
	*auth.TokenPair
}

type VerifyTwoFactorRequest struct {
	ChallengeID string `json:"challengeId"`
	Code        string `json:"code"`
}

type ResendTwoFactorRequest struct {
	ChallengeID string `json:"challengeId"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
