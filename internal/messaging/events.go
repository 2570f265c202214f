package messaging

import (
	"time"

	"github.com/google/uuid"
)

const ServiceName = "med-connect-api"

// Event routing keys
const (
	EventUserRegistered     = "user.registered"
	EventUserStatusChanged  = "user.status_changed"
	EventUserDoctorVerified = "user.doctor_verified"

	EventConnectionRequested = "connection.requested"
	EventConnectionAccepted  = "connection.accepted"
	EventConnectionRefused   = "connection.refused"

	EventAppointmentRequested = "appointment.requested"
	EventAppointmentConfirmed = "appointment.confirmed"
	EventAppointmentCancelled = "appointment.cancelled"
	EventAppointmentCompleted = "appointment.completed"

	EventMessageSent    = "message.sent"
	EventDossierUpdated = "dossier.updated"

	// Consumed by the mail worker.
	EventEmailRequested = "email.requested"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// Event is the envelope published for every routing key.
type Event struct {
	BaseEvent
	Data interface{} `json:"data"`
}

func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
	}
}

func NewEvent(eventType string, data interface{}) Event {
	return Event{BaseEvent: NewBaseEvent(eventType), Data: data}
}

type UserRegisteredData struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

type UserStatusChangedData struct {
	UserID    string    `json:"user_id"`
	ChangedBy string    `json:"changed_by"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}

type DoctorVerifiedData struct {
	DoctorID   string    `json:"doctor_id"`
	VerifiedBy string    `json:"verified_by"`
	VerifiedAt time.Time `json:"verified_at"`
}

type ConnectionData struct {
	RequestID   string    `json:"request_id"`
	PatientID   string    `json:"patient_id"`
	DoctorID    string    `json:"doctor_id"`
	RequestedBy string    `json:"requested_by"`
	Level       string    `json:"level"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type AppointmentData struct {
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	DoctorID      string    `json:"doctor_id"`
	ActorID       string    `json:"actor_id"`
	Status        string    `json:"status"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

type MessageSentData struct {
	MessageID   string    `json:"message_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	SentAt      time.Time `json:"sent_at"`
}

type DossierUpdatedData struct {
	PatientID string    `json:"patient_id"`
	ActorID   string    `json:"actor_id"`
	Change    string    `json:"change"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmailRequestedData asks the mail worker to deliver a templated e-mail.
type EmailRequestedData struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Params   map[string]string `json:"params"`
}
