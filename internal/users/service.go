package users

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/messaging"
	"github.com/medconnect/backend/internal/pagination"
)

type Service struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
}

func NewService(repo RepositoryInterface, publisher messaging.PublisherInterface) *Service {
	return &Service{repo: repo, publisher: publisher}
}

func (s *Service) GetProfile(ctx context.Context, principal *auth.Principal) (*User, error) {
	return s.repo.GetByID(ctx, principal.UserID)
}

func (s *Service) UpdateProfile(ctx context.Context, principal *auth.Principal, req UpdateProfileRequest) (*User, error) {
	if err := req.Validate(principal.Role()); err != nil {
		return nil, err
	}
	return s.repo.UpdateProfile(ctx, principal.UserID, req)
}

// SearchDoctors lists the verified, active doctor directory.
func (s *Service) SearchDoctors(ctx context.Context, f DoctorFilter, params pagination.Params) (*pagination.Page[User], error) {
	params.Validate()
	doctors, total, err := s.repo.ListDoctors(ctx, f, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, err
	}
	page := pagination.NewPage(doctors, params, total)
	return &page, nil
}

func (s *Service) ListUsers(ctx context.Context, f ListFilter, params pagination.Params) (*pagination.Page[User], error) {
	if f.Role != "" && !validRole(f.Role) {
		return nil, ErrInvalidRole
	}
	params.Validate()
	list, total, err := s.repo.List(ctx, f, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, err
	}
	page := pagination.NewPage(list, params, total)
	return &page, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// SetStatus activates or deactivates an account.
func (s *Service) SetStatus(ctx context.Context, principal *auth.Principal, id string, req UpdateStatusRequest) (*User, error) {
	if req.IsActive == nil {
		return nil, ErrMissingStatus
	}
	if id == principal.UserID && !*req.IsActive {
		return nil, ErrSelfModification
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsActive == *req.IsActive {
		return u, nil
	}
	if err := s.repo.SetActive(ctx, id, *req.IsActive); err != nil {
		return nil, err
	}

	old := statusLabel(u.IsActive)
	u.IsActive = *req.IsActive
	log.Info().Str("user_id", id).Str("by", principal.UserID).Bool("active", u.IsActive).Msg("user status changed")

	messaging.Emit(ctx, s.publisher, messaging.EventUserStatusChanged,
		messaging.NewEvent(messaging.EventUserStatusChanged, messaging.UserStatusChangedData{
			UserID:    id,
			ChangedBy: principal.UserID,
			OldStatus: old,
			NewStatus: statusLabel(u.IsActive),
			ChangedAt: time.Now().UTC(),
		}))
	return u, nil
}

func (s *Service) VerifyDoctor(ctx context.Context, principal *auth.Principal, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != auth.RoleDoctor {
		return nil, ErrNotADoctor
	}
	if u.IsVerified {
		return nil, ErrAlreadyVerified
	}
	if err := s.repo.MarkVerified(ctx, id); err != nil {
		return nil, err
	}
	u.IsVerified = true

	messaging.Emit(ctx, s.publisher, messaging.EventUserDoctorVerified,
		messaging.NewEvent(messaging.EventUserDoctorVerified, messaging.DoctorVerifiedData{
			DoctorID:   id,
			VerifiedBy: principal.UserID,
			VerifiedAt: time.Now().UTC(),
		}))
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, principal *auth.Principal, id string) error {
	if id == principal.UserID {
		return ErrSelfModification
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("user_id", id).Str("by", principal.UserID).Msg("user deleted")
	return nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

func validRole(role string) bool {
	switch role {
	case auth.RolePatient, auth.RoleDoctor, auth.RoleAdmin:
		return true
	}
	return false
}

func statusLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
