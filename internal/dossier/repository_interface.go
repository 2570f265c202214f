package dossier

import "context"

// RepositoryInterface defines the contract for dossier persistence
type RepositoryInterface interface {
	GetByPatient(ctx context.Context, patientID string) (*Dossier, error)
	Update(ctx context.Context, patientID, actorID string, req UpdateRequest) (*Dossier, error)
	CreateEntry(ctx context.Context, dossierID, authorID string, req CreateEntryRequest) (*Entry, error)
	ListEntries(ctx context.Context, dossierID string, f EntryFilter, limit, offset int) ([]Entry, int, error)
	GetEntry(ctx context.Context, dossierID, entryID string) (*Entry, error)
	DeleteEntry(ctx context.Context, dossierID, entryID string) error
}

var _ RepositoryInterface = (*Repository)(nil)
