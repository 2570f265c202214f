package account

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/users"
)

// AdminRequest describes an operator account created from the command line.
type AdminRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (r *AdminRequest) Normalize() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)

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
	return nil
}

// UserCreator inserts user rows.
type UserCreator interface {
	Create(ctx context.Context, u *users.User) error
}

// CreateAdmin inserts an active, verified ADMIN. Registration never grants
// this role, so it is the only way to bootstrap the admin surface.
func CreateAdmin(ctx context.Context, repo UserCreator, req AdminRequest) (*users.User, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &users.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         auth.RoleAdmin,
		IsActive:     true,
		IsVerified:   true,
	}
	if err := repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
