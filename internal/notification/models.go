package notification

import (
	"context"
	"time"
)

// Notification types
const (
	TypeConnectionRequested  = "CONNECTION_REQUESTED"
	TypeConnectionAccepted   = "CONNECTION_ACCEPTED"
	TypeConnectionRefused    = "CONNECTION_REFUSED"
	TypeAccessChanged        = "ACCESS_CHANGED"
	TypeAccessRevoked        = "ACCESS_REVOKED"
	TypeAppointmentRequested = "APPOINTMENT_REQUESTED"
	TypeAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	TypeAppointmentCancelled = "APPOINTMENT_CANCELLED"
	TypeAppointmentCompleted = "APPOINTMENT_COMPLETED"
	TypeNewMessage           = "NEW_MESSAGE"
	TypeDossierUpdated       = "DOSSIER_UPDATED"
	TypeDoctorVerified       = "DOCTOR_VERIFIED"
)

type Notification struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	Type        string     `json:"type" db:"type"`
	Title       string     `json:"title" db:"title"`
	Body        *string    `json:"body,omitempty" db:"body"`
	ReferenceID *string    `json:"referenceId,omitempty" db:"reference_id"`
	ReadAt      *time.Time `json:"readAt,omitempty" db:"read_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}

// Input describes a notification to create.
type Input struct {
	UserID      string
	Type        string
	Title       string
	Body        string
	ReferenceID string
}

// Notifier is what other domains use to notify a user.
type Notifier interface {
	Notify(ctx context.Context, in Input) (*Notification, error)
}

// ListFilter narrows a user's notification list.
type ListFilter struct {
	UnreadOnly bool
}
