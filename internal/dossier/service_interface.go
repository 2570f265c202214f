package dossier

import (
	"context"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/pagination"
)

type ServiceInterface interface {
	Get(ctx context.Context, principal *auth.Principal, patientID string) (*Dossier, error)
	Update(ctx context.Context, principal *auth.Principal, patientID string, req UpdateRequest) (*Dossier, error)
	AddEntry(ctx context.Context, principal *auth.Principal, patientID string, req CreateEntryRequest) (*Entry, error)
	ListEntries(ctx context.Context, principal *auth.Principal, patientID string, f EntryFilter, params pagination.Params) (*pagination.Page[Entry], error)
	DeleteEntry(ctx context.Context, principal *auth.Principal, patientID, entryID string) error
}

var _ ServiceInterface = (*Service)(nil)
