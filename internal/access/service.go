package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/notification"
	"github.com/medconnect/backend/internal/pagination"
)

type Service struct {
	repo     RepositoryInterface
	notifier notification.Notifier
}

func NewService(repo RepositoryInterface, notifier notification.Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

func (s *Service) grant(ctx context.Context, doctorID, patientID string) (*Grant, error) {
	g, err := s.repo.Find(ctx, patientID, doctorID)
	if errors.Is(err, ErrGrantNotFound) {
		return nil, nil
	}
	return g, err
}

// CanRead reports whether doctorID holds an active LECTURE or ECRITURE grant.
func (s *Service) CanRead(ctx context.Context, doctorID, patientID string) (bool, error) {
	g, err := s.grant(ctx, doctorID, patientID)
	if err != nil || g == nil {
		return false, err
	}
	return g.CanRead(), nil
}

// CanWrite reports whether doctorID holds an active ECRITURE grant.
func (s *Service) CanWrite(ctx context.Context, doctorID, patientID string) (bool, error) {
	g, err := s.grant(ctx, doctorID, patientID)
	if err != nil || g == nil {
		return false, err
	}
	return g.CanWrite(), nil
}

// AuthorizeRead allows the patient themselves or a doctor who can read.
func (s *Service) AuthorizeRead(ctx context.Context, principal *auth.Principal, patientID string) error {
	if principal.IsPatient() && principal.UserID == patientID {
		return nil
	}
	if !principal.IsDoctor() {
		return ErrNoReadAccess
	}
	ok, err := s.CanRead(ctx, principal.UserID, patientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoReadAccess
	}
	return nil
}

// AuthorizeWrite allows the patient themselves or a doctor who can write.
func (s *Service) AuthorizeWrite(ctx context.Context, principal *auth.Principal, patientID string) error {
	if principal.IsPatient() && principal.UserID == patientID {
		return nil
	}
	if !principal.IsDoctor() {
		return ErrNoWriteAccess
	}
	ok, err := s.CanWrite(ctx, principal.UserID, patientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoWriteAccess
	}
	return nil
}

// ActiveGrant returns the grant connecting two users, or ErrNotConnected.
func (s *Service) ActiveGrant(ctx context.Context, userA, userB string) (*Grant, error) {
	if userA == userB {
		return nil, ErrNotConnected
	}
	return s.repo.Between(ctx, userA, userB)
}

func (s *Service) ListGrants(ctx context.Context, principal *auth.Principal) ([]Grant, error) {
	grants, err := s.repo.ListForPatient(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if grants == nil {
		grants = []Grant{}
	}
	return grants, nil
}

func (s *Service) ChangeLevel(ctx context.Context, principal *auth.Principal, doctorID string, req ChangeLevelRequest) (*Grant, error) {
	if !ValidLevel(req.Level) {
		return nil, ErrInvalidLevel
	}
	g, err := s.repo.UpdateLevel(ctx, principal.UserID, doctorID, req.Level)
	if err != nil {
		return nil, err
	}
	log.Info().Str("patient_id", principal.UserID).Str("doctor_id", doctorID).Str("level", req.Level).Msg("access level changed")

	s.notify(ctx, notification.Input{
		UserID:      doctorID,
		Type:        notification.TypeAccessChanged,
		Title:       "Access level changed",
		Body:        fmt.Sprintf("Your access level to a patient's dossier is now %s", req.Level),
		ReferenceID: principal.UserID,
	})
	return g, nil
}

func (s *Service) Revoke(ctx context.Context, principal *auth.Principal, doctorID string) error {
	if err := s.repo.Revoke(ctx, principal.UserID, doctorID); err != nil {
		return err
	}
	log.Info().Str("patient_id", principal.UserID).Str("doctor_id", doctorID).Msg("access revoked")

	s.notify(ctx, notification.Input{
		UserID:      doctorID,
		Type:        notification.TypeAccessRevoked,
		Title:       "Access revoked",
		Body:        "A patient revoked your access to their dossier",
		ReferenceID: principal.UserID,
	})
	return nil
}

// ListPatients lists the doctor's patients with an active grant.
func (s *Service) ListPatients(ctx context.Context, principal *auth.Principal, search string, params pagination.Params) (*pagination.Page[Grant], error) {
	params.Validate()
	grants, total, err := s.repo.ListForDoctor(ctx, principal.UserID, search, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, err
	}
	page := pagination.NewPage(grants, params, total)
	return &page, nil
}

func (s *Service) notify(ctx context.Context, in notification.Input) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, in); err != nil {
		log.Warn().Err(err).Str("user_id", in.UserID).Str("type", in.Type).Msg("failed to create notification")
	}
}
