package users

import (
	"context"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/pagination"
)

// ServiceInterface defines the contract for user business logic operations
type ServiceInterface interface {
	GetProfile(ctx context.Context, principal *auth.Principal) (*User, error)
	UpdateProfile(ctx context.Context, principal *auth.Principal, req UpdateProfileRequest) (*User, error)
	SearchDoctors(ctx context.Context, f DoctorFilter, params pagination.Params) (*pagination.Page[User], error)
	ListUsers(ctx context.Context, f ListFilter, params pagination.Params) (*pagination.Page[User], error)
	GetUser(ctx context.Context, id string) (*User, error)
	SetStatus(ctx context.Context, principal *auth.Principal, id string, req UpdateStatusRequest) (*User, error)
	VerifyDoctor(ctx context.Context, principal *auth.Principal, id string) (*User, error)
	DeleteUser(ctx context.Context, principal *auth.Principal, id string) error
	Stats(ctx context.Context) (*Stats, error)
}

var _ ServiceInterface = (*Service)(nil)
