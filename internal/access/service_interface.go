package access

import (
	"context"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/pagination"
)

// ServiceInterface defines the contract for access grant operations
type ServiceInterface interface {
	CanRead(ctx context.Context, doctorID, patientID string) (bool, error)
	CanWrite(ctx context.Context, doctorID, patientID string) (bool, error)
	AuthorizeRead(ctx context.Context, principal *auth.Principal, patientID string) error
	AuthorizeWrite(ctx context.Context, principal *auth.Principal, patientID string) error
	ActiveGrant(ctx context.Context, userA, userB string) (*Grant, error)
	ListGrants(ctx context.Context, principal *auth.Principal) ([]Grant, error)
	ChangeLevel(ctx context.Context, principal *auth.Principal, doctorID string, req ChangeLevelRequest) (*Grant, error)
	Revoke(ctx context.Context, principal *auth.Principal, doctorID string) error
	ListPatients(ctx context.Context, principal *auth.Principal, search string, params pagination.Params) (*pagination.Page[Grant], error)
}

var _ ServiceInterface = (*Service)(nil)
