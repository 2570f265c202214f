package connection

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medconnect/backend/internal/access"
	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/messaging"
	"github.com/medconnect/backend/internal/notification"
	"github.com/medconnect/backend/internal/pagination"
)

// GrantLookup finds the active access grant between two users.
type GrantLookup interface {
	ActiveGrant(ctx context.Context, userA, userB string) (*access.Grant, error)
}

type Service struct {
	repo      RepositoryInterface
	grants    GrantLookup
	notifier  notification.Notifier
	publisher messaging.PublisherInterface
}

func NewService(repo RepositoryInterface, grants GrantLookup, notifier notification.Notifier, publisher messaging.PublisherInterface) *Service {
	return &Service{repo: repo, grants: grants, notifier: notifier, publisher: publisher}
}

// Create opens a request from a patient to a verified doctor, or from a
// doctor to a patient.
func (s *Service) Create(ctx context.Context, principal *auth.Principal, req CreateRequest) (*Request, error) {
	req.TargetID = strings.TrimSpace(req.TargetID)
	if req.TargetID == "" {
		return nil, ErrMissingTarget
	}
	if req.Level == "" {
		req.Level = access.LevelLecture
	}
	if !access.ValidLevel(req.Level) {
		return nil, access.ErrInvalidLevel
	}
	req.Message = strings.TrimSpace(req.Message)
	if len(req.Message) > maxMessageLength {
		return nil, ErrMessageTooLong
	}

	target, err := s.repo.GetParty(ctx, req.TargetID)
	if err != nil {
		return nil, err
	}
	if !target.IsActive {
		return nil, ErrTargetInactive
	}

	c := &Request{RequestedBy: principal.UserID, RequestedLevel: req.Level}
	switch {
	case principal.IsPatient() && target.Role == auth.RoleDoctor:
		if !target.IsVerified {
			return nil, ErrDoctorNotVerified
		}
		c.PatientID, c.DoctorID = principal.UserID, target.ID
	case principal.IsDoctor() && target.Role == auth.RolePatient:
		c.PatientID, c.DoctorID = target.ID, principal.UserID
	default:
		return nil, ErrInvalidTarget
	}
	if req.Message != "" {
		c.Message = &req.Message
	}

	if _, err := s.grants.ActiveGrant(ctx, c.PatientID, c.DoctorID); err == nil {
		return nil, ErrAlreadyConnected
	} else if !errors.Is(err, access.ErrNotConnected) {
		return nil, err
	}
	pending, err := s.repo.HasPending(ctx, c.PatientID, c.DoctorID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrPendingExists
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	log.Info().Str("request_id", c.ID).Str("patient_id", c.PatientID).Str("doctor_id", c.DoctorID).Msg("connection requested")

	s.notify(ctx, c.Counterpart(), notification.TypeConnectionRequested, "New connection request", c.ID)
	s.emit(ctx, messaging.EventConnectionRequested, c, c.RequestedLevel)
	return c, nil
}

func (s *Service) Get(ctx context.Context, principal *auth.Principal, id string) (*Request, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Involves(principal.UserID) {
		return nil, ErrRequestNotFound
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, principal *auth.Principal, f ListFilter, params pagination.Params) (*pagination.Page[Request], error) {
	if f.Status != "" && !validStatus(f.Status) {
		return nil, ErrInvalidStatus
	}
	if f.Direction != "" && f.Direction != DirectionIncoming && f.Direction != DirectionOutgoing {
		return nil, ErrInvalidDirection
	}
	params.Validate()
	list, total, err := s.repo.List(ctx, principal.UserID, f, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, err
	}
	page := pagination.NewPage(list, params, total)
	return &page, nil
}

// pendingForRecipient loads a request the principal may answer.
func (s *Service) pendingForRecipient(ctx context.Context, principal *auth.Principal, id string) (*Request, error) {
	c, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if c.RequestedBy == principal.UserID {
		return nil, ErrNotCounterpart
	}
	if c.Status != StatusPending {
		return nil, ErrNotPending
	}
	return c, nil
}

// Accept grants the doctor access at the requested level. A patient
// accepting a doctor's request may pick a different level.
func (s *Service) Accept(ctx context.Context, principal *auth.Principal, id string, req RespondRequest) (*Request, error) {
	c, err := s.pendingForRecipient(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	level := c.RequestedLevel
	if req.Level != "" && principal.UserID == c.PatientID {
		if !access.ValidLevel(req.Level) {
			return nil, access.ErrInvalidLevel
		}
		level = req.Level
	}

	accepted, err := s.repo.Accept(ctx, c.ID, level)
	if err != nil {
		return nil, err
	}
	log.Info().Str("request_id", c.ID).Str("level", level).Msg("connection accepted")

	s.notify(ctx, accepted.RequestedBy, notification.TypeConnectionAccepted, "Connection request accepted", accepted.ID)
	s.emit(ctx, messaging.EventConnectionAccepted, accepted, level)
	return accepted, nil
}

func (s *Service) Refuse(ctx context.Context, principal *auth.Principal, id string) (*Request, error) {
	c, err := s.pendingForRecipient(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	refused, err := s.repo.SetStatus(ctx, c.ID, StatusRefused)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, refused.RequestedBy, notification.TypeConnectionRefused, "Connection request declined", refused.ID)
	s.emit(ctx, messaging.EventConnectionRefused, refused, refused.RequestedLevel)
	return refused, nil
}

// Cancel withdraws a pending request. Only its sender may cancel.
func (s *Service) Cancel(ctx context.Context, principal *auth.Principal, id string) (*Request, error) {
	c, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if c.RequestedBy != principal.UserID {
		return nil, ErrNotRequester
	}
	if c.Status != StatusPending {
		return nil, ErrNotPending
	}
	return s.repo.SetStatus(ctx, c.ID, StatusCancelled)
}

func (s *Service) notify(ctx context.Context, userID, notificationType, title, requestID string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, notification.Input{
		UserID:      userID,
		Type:        notificationType,
		Title:       title,
		ReferenceID: requestID,
	}); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("type", notificationType).Msg("failed to create notification")
	}
}

func (s *Service) emit(ctx context.Context, key string, c *Request, level string) {
	messaging.Emit(ctx, s.publisher, key, messaging.NewEvent(key, messaging.ConnectionData{
		RequestID:   c.ID,
		PatientID:   c.PatientID,
		DoctorID:    c.DoctorID,
		RequestedBy: c.RequestedBy,
		Level:       level,
		Status:      c.Status,
		OccurredAt:  time.Now().UTC(),
	}))
}
