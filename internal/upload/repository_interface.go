package upload

import (
	"context"
	"time"
)

type RepositoryInterface interface {
	Create(ctx context.Context, f *File) error
	GetByID(ctx context.Context, id string) (*File, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]File, int, error)
	SoftDelete(ctx context.Context, id string) error
	ListPurgeable(ctx context.Context, before time.Time, limit int) ([]File, error)
	Purge(ctx context.Context, ids []string) error
}

var _ RepositoryInterface = (*Repository)(nil)
