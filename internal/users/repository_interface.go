package users

import "context"

// RepositoryInterface defines the contract for user data access
type RepositoryInterface interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
	MarkVerified(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]User, int, error)
	ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]User, int, error)
	Stats(ctx context.Context) (*Stats, error)
}

var _ RepositoryInterface = (*Repository)(nil)
