package upload

import (
	"context"
	"io"
	"time"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/pagination"
)

type ServiceInterface interface {
	MaxBytes() int64
	Upload(ctx context.Context, principal *auth.Principal, in UploadInput) (*File, error)
	Get(ctx context.Context, principal *auth.Principal, id string) (*File, error)
	Open(ctx context.Context, principal *auth.Principal, id string) (*File, io.ReadCloser, error)
	Delete(ctx context.Context, principal *auth.Principal, id string) error
	ListForPatient(ctx context.Context, principal *auth.Principal, patientID string, params pagination.Params) (*pagination.Page[File], error)
	IsOwner(ctx context.Context, fileID, userID string) (bool, error)
	PurgeDeleted(ctx context.Context, retention time.Duration) (int, error)
}

var _ ServiceInterface = (*Service)(nil)
