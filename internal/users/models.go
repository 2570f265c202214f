package users

import (
	"strings"
	"time"
)

// User is a platform account. PasswordHash never leaves the service layer.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	PhoneNumber      *string    `json:"phoneNumber,omitempty"`
	Role             string     `json:"role"`
	Specialty        *string    `json:"specialty,omitempty"`
	LicenseNumber    *string    `json:"licenseNumber,omitempty"`
	DateOfBirth      *string    `json:"dateOfBirth,omitempty"`
	IsActive         bool       `json:"isActive"`
	IsVerified       bool       `json:"isVerified"`
	TwoFactorEnabled bool       `json:"twoFactorEnabled"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UpdateProfileRequest carries the fields a user may change on their own profile.
type UpdateProfileRequest struct {
	FirstName        *string `json:"firstName,omitempty"`
	LastName         *string `json:"lastName,omitempty"`
	PhoneNumber      *string `json:"phoneNumber,omitempty"`
	Specialty        *string `json:"specialty,omitempty"`
	DateOfBirth      *string `json:"dateOfBirth,omitempty"`
	TwoFactorEnabled *bool   `json:"twoFactorEnabled,omitempty"`
}

func (r *UpdateProfileRequest) empty() bool {
	return r.FirstName == nil && r.LastName == nil && r.PhoneNumber == nil &&
		r.Specialty == nil && r.DateOfBirth == nil && r.TwoFactorEnabled == nil
}

// Validate checks field formats for a user with the given role.
func (r *UpdateProfileRequest) Validate(role string) error {
	if r.empty() {
		return ErrNoFieldsToUpdate
	}
	if r.FirstName != nil && strings.TrimSpace(*r.FirstName) == "" {
		return ErrMissingFirstName
	}
	if r.LastName != nil && strings.TrimSpace(*r.LastName) == "" {
		return ErrMissingLastName
	}
	if r.Specialty != nil && role != "DOCTOR" {
		return ErrSpecialtyNotAllowed
	}
	if r.DateOfBirth != nil {
		if _, err := time.Parse("2006-01-02", *r.DateOfBirth); err != nil {
			return ErrInvalidDateOfBirth
		}
	}
	return nil
}

// ListFilter narrows the admin user listing.
type ListFilter struct {
	Role   string
	Search string
	Active *bool
}

// DoctorFilter narrows the doctor directory.
type DoctorFilter struct {
	Search    string
	Specialty string
}

type UpdateStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

// Stats summarises the user base for the admin dashboard.
type Stats struct {
	Patients                   int `json:"patients"`
	Doctors                    int `json:"doctors"`
	Admins                     int `json:"admins"`
	ActiveUsers                int `json:"activeUsers"`
	InactiveUsers              int `json:"inactiveUsers"`
	PendingDoctorVerifications int `json:"pendingDoctorVerifications"`
}
