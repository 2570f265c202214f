package account

import (
	"context"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/users"
)

type ServiceInterface interface {
	Register(ctx context.Context, req RegisterRequest) (*users.User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	VerifyTwoFactor(ctx context.Context, req VerifyTwoFactorRequest) (*LoginResult, error)
	ResendTwoFactor(ctx context.Context, req ResendTwoFactorRequest) (*LoginResult, error)
	Refresh(ctx context.Context, req RefreshRequest) (*auth.TokenPair, error)
	Logout(ctx context.Context, req RefreshRequest) error
	Me(ctx context.Context, principal *auth.Principal) (*users.User, error)
	ChangePassword(ctx context.Context, principal *auth.Principal, req ChangePasswordRequest) error
}

var _ ServiceInterface = (*Service)(nil)
