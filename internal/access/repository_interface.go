package access

import "context"

// RepositoryInterface defines the contract for access grant persistence
type RepositoryInterface interface {
	Find(ctx context.Context, patientID, doctorID string) (*Grant, error)
	Between(ctx context.Context, userA, userB string) (*Grant, error)
	ListForPatient(ctx context.Context, patientID string) ([]Grant, error)
	ListForDoctor(ctx context.Context, doctorID, search string, limit, offset int) ([]Grant, int, error)
	UpdateLevel(ctx context.Context, patientID, doctorID, level string) (*Grant, error)
	Revoke(ctx context.Context, patientID, doctorID string) error
}

var _ RepositoryInterface = (*Repository)(nil)
