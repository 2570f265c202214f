package connection

import "context"

// RepositoryInterface defines the contract for connection request persistence
type RepositoryInterface interface {
	GetParty(ctx context.Context, id string) (*Party, error)
	Create(ctx context.Context, c *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	HasPending(ctx context.Context, patientID, doctorID string) (bool, error)
	List(ctx context.Context, userID string, f ListFilter, limit, offset int) ([]Request, int, error)
	Accept(ctx context.Context, id, level string) (*Request, error)
	SetStatus(ctx context.Context, id, status string) (*Request, error)
}

var _ RepositoryInterface = (*Repository)(nil)
