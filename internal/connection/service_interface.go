package connection

import (
	"context"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/pagination"
)

type ServiceInterface interface {
	Create(ctx context.Context, principal *auth.Principal, req CreateRequest) (*Request, error)
	Get(ctx context.Context, principal *auth.Principal, id string) (*Request, error)
	List(ctx context.Context, principal *auth.Principal, f ListFilter, params pagination.Params) (*pagination.Page[Request], error)
	Accept(ctx context.Context, principal *auth.Principal, id string, req RespondRequest) (*Request, error)
	Refuse(ctx context.Context, principal *auth.Principal, id string) (*Request, error)
	Cancel(ctx context.Context, principal *auth.Principal, id string) (*Request, error)
}

var _ ServiceInterface = (*Service)(nil)
