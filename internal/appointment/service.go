package appointment

import (
	"context"
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
	now       func() time.Time
}

func NewService(repo RepositoryInterface, grants GrantLookup, notifier notification.Notifier, publisher messaging.PublisherInterface) *Service {
	return &Service{repo: repo, grants: grants, notifier: notifier, publisher: publisher, now: time.Now}
}

// Create proposes an appointment to a counterpart connected through an
// active access grant.
func (s *Service) Create(ctx context.Context, principal *auth.Principal, req CreateRequest) (*Appointment, error) {
	req.CounterpartID = strings.TrimSpace(req.CounterpartID)
	if req.CounterpartID == "" {
		return nil, ErrMissingCounterpart
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = DefaultDuration
	}
	if req.DurationMinutes < MinDuration || req.DurationMinutes > MaxDuration {
		return nil, ErrInvalidDuration
	}
	if !req.ScheduledAt.After(s.now()) {
		return nil, ErrNotInFuture
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if len(req.Reason) > maxReasonLength {
		return nil, ErrReasonTooLong
	}

	grant, err := s.grants.ActiveGrant(ctx, principal.UserID, req.CounterpartID)
	if err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID:       grant.PatientID,
		DoctorID:        grant.DoctorID,
		RequestedBy:     principal.UserID,
		ScheduledAt:     req.ScheduledAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		Status:          StatusRequested,
	}
	if req.Reason != "" {
		a.Reason = &req.Reason
	}
	if loc := strings.TrimSpace(req.Location); loc != "" {
		a.Location = &loc
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	log.Info().Str("appointment_id", a.ID).Str("requested_by", principal.UserID).Time("scheduled_at", a.ScheduledAt).Msg("appointment requested")

	s.notify(ctx, req.CounterpartID, notification.TypeAppointmentRequested, "New appointment request", a.ID)
	s.emit(ctx, messaging.EventAppointmentRequested, a, principal.UserID)
	return a, nil
}

func (s *Service) Get(ctx context.Context, principal *auth.Principal, id string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Involves(principal.UserID) {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, principal *auth.Principal, f ListFilter, params pagination.Params) (*pagination.Page[Appointment], error) {
	if f.Status != "" && !validStatus(f.Status) {
		return nil, ErrInvalidStatus
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, ErrInvalidRange
	}
	params.Validate()
	list, total, err := s.repo.List(ctx, principal.UserID, f, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, err
	}
	page := pagination.NewPage(list, params, total)
	return &page, nil
}

// Confirm accepts a requested appointment. Only the invited party may
// confirm, and the doctor must be free for the whole slot.
func (s *Service) Confirm(ctx context.Context, principal *auth.Principal, id string) (*Appointment, error) {
	a, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if a.RequestedBy == principal.UserID {
		return nil, ErrRequesterCannotConfirm
	}
	if a.Status != StatusRequested {
		return nil, ErrInvalidTransition
	}
	if !a.ScheduledAt.After(s.now()) {
		return nil, ErrNotInFuture
	}
	if err := s.repo.Confirm(ctx, a); err != nil {
		return nil, err
	}
	a.Status = StatusConfirmed
	a.UpdatedAt = s.now().UTC()

	s.notify(ctx, a.RequestedBy, notification.TypeAppointmentConfirmed, "Appointment confirmed", a.ID)
	s.emit(ctx, messaging.EventAppointmentConfirmed, a, principal.UserID)
	return a, nil
}

// Cancel is allowed to either party while the appointment is requested or
// confirmed.
func (s *Service) Cancel(ctx context.Context, principal *auth.Principal, id string, req CancelRequest) (*Appointment, error) {
	a, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusRequested && a.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}
	var reason *string
	if r := strings.TrimSpace(req.Reason); r != "" {
		if len(r) > maxReasonLength {
			return nil, ErrReasonTooLong
		}
		reason = &r
	}
	if err := s.repo.Transition(ctx, a.ID, StatusCancelled, []string{StatusRequested, StatusConfirmed}, reason); err != nil {
		return nil, err
	}
	a.Status = StatusCancelled
	a.CancelReason = reason
	a.UpdatedAt = s.now().UTC()

	s.notify(ctx, a.Other(principal.UserID), notification.TypeAppointmentCancelled, "Appointment cancelled", a.ID)
	s.emit(ctx, messaging.EventAppointmentCancelled, a, principal.UserID)
	return a, nil
}

// Complete marks a confirmed appointment done. Only the doctor may do so,
// once the appointment has started.
func (s *Service) Complete(ctx context.Context, principal *auth.Principal, id string) (*Appointment, error) {
	a, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if a.DoctorID != principal.UserID {
		return nil, ErrDoctorOnly
	}
	if a.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}
	if s.now().Before(a.ScheduledAt) {
		return nil, ErrNotYetStarted
	}
	if err := s.repo.Transition(ctx, a.ID, StatusCompleted, []string{StatusConfirmed}, nil); err != nil {
		return nil, err
	}
	a.Status = StatusCompleted
	a.UpdatedAt = s.now().UTC()

	s.notify(ctx, a.PatientID, notification.TypeAppointmentCompleted, "Appointment completed", a.ID)
	s.emit(ctx, messaging.EventAppointmentCompleted, a, principal.UserID)
	return a, nil
}

func (s *Service) notify(ctx context.Context, userID, notificationType, title, appointmentID string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, notification.Input{
		UserID:      userID,
		Type:        notificationType,
		Title:       title,
		ReferenceID: appointmentID,
	}); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("type", notificationType).Msg("failed to create notification")
	}
}

func (s *Service) emit(ctx context.Context, key string, a *Appointment, actorID string) {
	messaging.Emit(ctx, s.publisher, key, messaging.NewEvent(key, messaging.AppointmentData{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		DoctorID:      a.DoctorID,
		ActorID:       actorID,
		Status:        a.Status,
		ScheduledAt:   a.ScheduledAt,
	}))
}
