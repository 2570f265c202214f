package users

import (
	"context"
	"errors"
	"testing"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/messaging"
	"github.com/medconnect/backend/internal/pagination"
	"github.com/medconnect/backend/internal/testutil"
)

type mockRepository struct {
	createFunc         func(ctx context.Context, u *User) error
	getByIDFunc        func(ctx context.Context, id string) (*User, error)
	getByEmailFunc     func(ctx context.Context, email string) (*User, error)
	updateProfileFunc  func(ctx context.Context, id string, req UpdateProfileRequest) (*User, error)
	updatePasswordFunc func(ctx context.Context, id, hash string) error
	setActiveFunc      func(ctx context.Context, id string, active bool) error
	markVerifiedFunc   func(ctx context.Context, id string) error
	softDeleteFunc     func(ctx context.Context, id string) error
	listFunc           func(ctx context.Context, f ListFilter, limit, offset int) ([]User, int, error)
	listDoctorsFunc    func(ctx context.Context, f DoctorFilter, limit, offset int) ([]User, int, error)
	statsFunc          func(ctx context.Context) (*Stats, error)
}

func (m *mockRepository) Create(ctx context.Context, u *User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, u)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	if m.getByEmailFunc != nil {
		return m.getByEmailFunc(ctx, email)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*User, error) {
	if m.updateProfileFunc != nil {
		return m.updateProfileFunc(ctx, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	if m.updatePasswordFunc != nil {
		return m.updatePasswordFunc(ctx, id, hash)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) TouchLastLogin(ctx context.Context, id string) error {
	return nil
}

func (m *mockRepository) SetActive(ctx context.Context, id string, active bool) error {
	if m.setActiveFunc != nil {
		return m.setActiveFunc(ctx, id, active)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) MarkVerified(ctx context.Context, id string) error {
	if m.markVerifiedFunc != nil {
		return m.markVerifiedFunc(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) SoftDelete(ctx context.Context, id string) error {
	if m.softDeleteFunc != nil {
		return m.softDeleteFunc(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) List(ctx context.Context, f ListFilter, limit, offset int) ([]User, int, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, f, limit, offset)
	}
	return nil, 0, errors.New("not implemented")
}

func (m *mockRepository) ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]User, int, error) {
	if m.listDoctorsFunc != nil {
		return m.listDoctorsFunc(ctx, f, limit, offset)
	}
	return nil, 0, errors.New("not implemented")
}

func (m *mockRepository) Stats(ctx context.Context) (*Stats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestUpdateProfile_RejectsSpecialtyForPatient(t *testing.T) {
	service := NewService(&mockRepository{}, nil)
	_, err := service.UpdateProfile(context.Background(), testutil.Principal("p1", auth.RolePatient),
		UpdateProfileRequest{Specialty: strPtr("Cardiology")})
	if !errors.Is(err, ErrSpecialtyNotAllowed) {
		t.Fatalf("Expected ErrSpecialtyNotAllowed, got %v", err)
	}
}

func TestUpdateProfile_EmptyRequest(t *testing.T) {
	service := NewService(&mockRepository{}, nil)
	_, err := service.UpdateProfile(context.Background(), testutil.Principal("p1", auth.RolePatient), UpdateProfileRequest{})
	if !errors.Is(err, ErrNoFieldsToUpdate) {
		t.Fatalf("Expected ErrNoFieldsToUpdate, got %v", err)
	}
}

func TestUpdateProfile_DoctorSpecialtyAndTwoFactor(t *testing.T) {
	var gotID string
	repo := &mockRepository{
		updateProfileFunc: func(ctx context.Context, id string, req UpdateProfileRequest) (*User, error) {
			gotID = id
			return &User{ID: id, Specialty: req.Specialty, TwoFactorEnabled: *req.TwoFactorEnabled}, nil
		},
	}
	service := NewService(repo, nil)

	u, err := service.UpdateProfile(context.Background(), testutil.Principal("d1", auth.RoleDoctor),
		UpdateProfileRequest{Specialty: strPtr("Cardiology"), TwoFactorEnabled: boolPtr(true)})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gotID != "d1" {
		t.Errorf("Expected update for d1, got %s", gotID)
	}
	if !u.TwoFactorEnabled || *u.Specialty != "Cardiology" {
		t.Errorf("Unexpected user: %+v", u)
	}
}

func TestSearchDoctors_Paginates(t *testing.T) {
	repo := &mockRepository{
		listDoctorsFunc: func(ctx context.Context, f DoctorFilter, limit, offset int) ([]User, int, error) {
			if f.Search != "card" || limit != 10 || offset != 10 {
				t.Errorf("Unexpected args: %+v %d %d", f, limit, offset)
			}
			return []User{{ID: "d1"}}, 11, nil
		},
	}
	service := NewService(repo, nil)

	page, err := service.SearchDoctors(context.Background(), DoctorFilter{Search: "card"}, pagination.Params{Page: 2, Limit: 10})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if page.Pagination.TotalRecords != 11 || page.Pagination.TotalPages != 2 {
		t.Errorf("Unexpected meta: %+v", page.Pagination)
	}
	if len(page.Data) != 1 {
		t.Errorf("Expected 1 doctor, got %d", len(page.Data))
	}
}

func TestListUsers_InvalidRole(t *testing.T) {
	service := NewService(&mockRepository{}, nil)
	_, err := service.ListUsers(context.Background(), ListFilter{Role: "NURSE"}, pagination.Params{Page: 1, Limit: 10})
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("Expected ErrInvalidRole, got %v", err)
	}
}

func TestSetStatus_CannotDeactivateSelf(t *testing.T) {
	service := NewService(&mockRepository{}, nil)
	_, err := service.SetStatus(context.Background(), testutil.Principal("admin-1", auth.RoleAdmin), "admin-1",
		UpdateStatusRequest{IsActive: boolPtr(false)})
	if !errors.Is(err, ErrSelfModification) {
		t.Fatalf("Expected ErrSelfModification, got %v", err)
	}
}

func TestSetStatus_PublishesEvent(t *testing.T) {
	pub := testutil.NewMockPublisher()
	var setTo *bool
	repo := &mockRepository{
		getByIDFunc: func(ctx context.Context, id string) (*User, error) {
			return &User{ID: id, Role: auth.RolePatient, IsActive: true}, nil
		},
		setActiveFunc: func(ctx context.Context, id string, active bool) error {
			setTo = &active
			return nil
		},
	}
	service := NewService(repo, pub)

	u, err := service.SetStatus(context.Background(), testutil.Principal("admin-1", auth.RoleAdmin), "p1",
		UpdateStatusRequest{IsActive: boolPtr(false)})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if setTo == nil || *setTo {
		t.Fatal("Expected SetActive(false)")
	}
	if u.IsActive {
		t.Error("Expected returned user to be inactive")
	}

	pub.AssertEventCount(t, messaging.EventUserStatusChanged, 1)
	var data messaging.UserStatusChangedData
	pub.Last(messaging.EventUserStatusChanged).DecodeData(t, &data)
	if data.OldStatus != "active" || data.NewStatus != "inactive" || data.ChangedBy != "admin-1" {
		t.Errorf("Unexpected event data: %+v", data)
	}
}

func TestSetStatus_NoChangeIsNoop(t *testing.T) {
	pub := testutil.NewMockPublisher()
	repo := &mockRepository{
		getByIDFunc: func(ctx context.Context, id string) (*User, error) {
			return &User{ID: id, IsActive: true}, nil
		},
	}
	service := NewService(repo, pub)

	if _, err := service.SetStatus(context.Background(), testutil.Principal("admin-1", auth.RoleAdmin), "p1",
		UpdateStatusRequest{IsActive: boolPtr(true)}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	pub.AssertEventCount(t, messaging.EventUserStatusChanged, 0)
}

func TestVerifyDoctor(t *testing.T) {
	tests := []struct {
		name    string
		user    *User
		wantErr error
	}{
		{"not a doctor", &User{ID: "x", Role: auth.RolePatient}, ErrNotADoctor},
		{"already verified", &User{ID: "x", Role: auth.RoleDoctor, IsVerified: true}, ErrAlreadyVerified},
		{"success", &User{ID: "x", Role: auth.RoleDoctor}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := testutil.NewMockPublisher()
			repo := &mockRepository{
				getByIDFunc:      func(ctx context.Context, id string) (*User, error) { return tt.user, nil },
				markVerifiedFunc: func(ctx context.Context, id string) error { return nil },
			}
			service := NewService(repo, pub)

			u, err := service.VerifyDoctor(context.Background(), testutil.Principal("admin-1", auth.RoleAdmin), "x")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil {
				if !u.IsVerified {
					t.Error("Expected doctor to be verified")
				}
				pub.AssertEventCount(t, messaging.EventUserDoctorVerified, 1)
			}
		})
	}
}

func TestDeleteUser_CannotDeleteSelf(t *testing.T) {
	service := NewService(&mockRepository{}, nil)
	err := service.DeleteUser(context.Background(), testutil.Principal("admin-1", auth.RoleAdmin), "admin-1")
	if !errors.Is(err, ErrSelfModification) {
		t.Fatalf("Expected ErrSelfModification, got %v", err)
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	repo := &mockRepository{
		softDeleteFunc: func(ctx context.Context, id string) error { return ErrUserNotFound },
	}
	service := NewService(repo, nil)
	err := service.DeleteUser(context.Background(), testutil.Principal("admin-1", auth.RoleAdmin), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Expected ErrUserNotFound, got %v", err)
	}
}
