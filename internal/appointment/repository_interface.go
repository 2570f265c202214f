package appointment

import "context"

// RepositoryInterface defines the contract for appointment persistence
type RepositoryInterface interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, userID string, f ListFilter, limit, offset int) ([]Appointment, int, error)
	Transition(ctx context.Context, id, to string, from []string, cancelReason *string) error
	Confirm(ctx context.Context, a *Appointment) error
}

var _ RepositoryInterface = (*Repository)(nil)
