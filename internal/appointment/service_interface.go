package appointment

import (
	"context"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/pagination"
)

type ServiceInterface interface {
	Create(ctx context.Context, principal *auth.Principal, req CreateRequest) (*Appointment, error)
	Get(ctx context.Context, principal *auth.Principal, id string) (*Appointment, error)
	List(ctx context.Context, principal *auth.Principal, f ListFilter, params pagination.Params) (*pagination.Page[Appointment], error)
	Confirm(ctx context.Context, principal *auth.Principal, id string) (*Appointment, error)
	Cancel(ctx context.Context, principal *auth.Principal, id string, req CancelRequest) (*Appointment, error)
	Complete(ctx context.Context, principal *auth.Principal, id string) (*Appointment, error)
}

var _ ServiceInterface = (*Service)(nil)
