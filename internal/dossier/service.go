package dossier

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/messaging"
	"github.com/medconnect/backend/internal/notification"
	"github.com/medconnect/backend/internal/pagination"
)

// AccessChecker decides whether a principal may read or write a patient's dossier.
type AccessChecker interface {
	AuthorizeRead(ctx context.Context, principal *auth.Principal, patientID string) error
	AuthorizeWrite(ctx context.Context, principal *auth.Principal, patientID string) error
}

// MetricsRecorder records dossier reads and writes.
type MetricsRecorder interface {
	RecordDossierOperation(ctx context.Context, operation, actorRole string)
}

// Operation names used for metrics and dossier.updated events.
const (
	opRead        = "read"
	opUpdate      = "update"
	opAddEntry    = "add_entry"
	opDeleteEntry = "delete_entry"
)

type Service struct {
	repo      RepositoryInterface
	access    AccessChecker
	notifier  notification.Notifier
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder
}

func NewService(repo RepositoryInterface, access AccessChecker, notifier notification.Notifier,
	publisher messaging.PublisherInterface, metrics MetricsRecorder) *Service {
	return &Service{repo: repo, access: access, notifier: notifier, publisher: publisher, metrics: metrics}
}

func (s *Service) record(ctx context.Context, op string, principal *auth.Principal) {
	if s.metrics != nil {
		s.metrics.RecordDossierOperation(ctx, op, principal.Role())
	}
}

func (s *Service) Get(ctx context.Context, principal *auth.Principal, patientID string) (*Dossier, error) {
	if err := s.access.AuthorizeRead(ctx, principal, patientID); err != nil {
		return nil, err
	}
	d, err := s.repo.GetByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, opRead, principal)
	return d, nil
}

func (s *Service) Update(ctx context.Context, principal *auth.Principal, patientID string, req UpdateRequest) (*Dossier, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeWrite(ctx, principal, patientID); err != nil {
		return nil, err
	}
	d, err := s.repo.Update(ctx, patientID, principal.UserID, req)
	if err != nil {
		return nil, err
	}
	s.record(ctx, opUpdate, principal)
	s.changed(ctx, principal, patientID, opUpdate, d.ID, "Your medical record was updated")
	return d, nil
}

func (s *Service) AddEntry(ctx context.Context, principal *auth.Principal, patientID string, req CreateEntryRequest) (*Entry, error) {
	if !principal.IsDoctor() {
		return nil, ErrDoctorOnly
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeWrite(ctx, principal, patientID); err != nil {
		return nil, err
	}
	d, err := s.repo.GetByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	e, err := s.repo.CreateEntry(ctx, d.ID, principal.UserID, req)
	if err != nil {
		return nil, err
	}
	log.Info().Str("patient_id", patientID).Str("author_id", principal.UserID).Str("type", e.Type).Msg("dossier entry added")

	s.record(ctx, opAddEntry, principal)
	s.changed(ctx, principal, patientID, opAddEntry, e.ID, "New entry in your medical record: "+e.Title)
	return e, nil
}

func (s *Service) ListEntries(ctx context.Context, principal *auth.Principal, patientID string, f EntryFilter, params pagination.Params) (*pagination.Page[Entry], error) {
	if f.Type != "" && !validEntryType(f.Type) {
		return nil, ErrInvalidEntryType
	}
	if err := s.access.AuthorizeRead(ctx, principal, patientID); err != nil {
		return nil, err
	}
	d, err := s.repo.GetByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	params.Validate()
	entries, total, err := s.repo.ListEntries(ctx, d.ID, f, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, err
	}
	s.record(ctx, opRead, principal)
	page := pagination.NewPage(entries, params, total)
	return &page, nil
}

// DeleteEntry removes an entry. Only its author may do so, and only while
// they still hold write access.
func (s *Service) DeleteEntry(ctx context.Context, principal *auth.Principal, patientID, entryID string) error {
	if err := s.access.AuthorizeWrite(ctx, principal, patientID); err != nil {
		return err
	}
	d, err := s.repo.GetByPatient(ctx, patientID)
	if err != nil {
		return err
	}
	e, err := s.repo.GetEntry(ctx, d.ID, entryID)
	if err != nil {
		return err
	}
	if e.AuthorID != principal.UserID {
		return ErrNotEntryAuthor
	}
	if err := s.repo.DeleteEntry(ctx, d.ID, entryID); err != nil {
		return err
	}
	s.record(ctx, opDeleteEntry, principal)
	s.changed(ctx, principal, patientID, opDeleteEntry, entryID, "An entry was removed from your medical record")
	return nil
}

// changed publishes dossier.updated and, when someone other than the
// patient made the change, notifies the patient.
func (s *Service) changed(ctx context.Context, principal *auth.Principal, patientID, op, referenceID, title string) {
	messaging.Emit(ctx, s.publisher, messaging.EventDossierUpdated,
		messaging.NewEvent(messaging.EventDossierUpdated, messaging.DossierUpdatedData{
			PatientID: patientID,
			ActorID:   principal.UserID,
			Change:    op,
			UpdatedAt: time.Now().UTC(),
		}))

	if principal.UserID == patientID || s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, notification.Input{
		UserID:      patientID,
		Type:        notification.TypeDossierUpdated,
		Title:       title,
		ReferenceID: referenceID,
	}); err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("failed to notify dossier change")
	}
}
