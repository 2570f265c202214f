package connection

import "time"

// Request statuses
const (
	StatusPending   = "EN_ATTENTE"
	StatusAccepted  = "ACCEPTEE"
	StatusRefused   = "REFUSEE"
	StatusCancelled = "ANNULEE"
)

const maxMessageLength = 1000

func validStatus(s string) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRefused, StatusCancelled:
		return true
	}
	return false
}

// Party is a user as seen from the connection module.
type Party struct {
	ID         string  `json:"id"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Email      string  `json:"email"`
	Role       string  `json:"-"`
	Specialty  *string `json:"specialty,omitempty"`
	IsActive   bool    `json:"-"`
	IsVerified bool    `json:"-"`
}

// Request is a doctor-patient connection request.
type Request struct {
	ID             string     `json:"id"`
	PatientID      string     `json:"patientId"`
	DoctorID       string     `json:"doctorId"`
	RequestedBy    string     `json:"requestedBy"`
	RequestedLevel string     `json:"requestedLevel"`
	Status         string     `json:"status"`
	Message        *string    `json:"message,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	RespondedAt    *time.Time `json:"respondedAt,omitempty"`
	Patient        *Party     `json:"patient,omitempty"`
	Doctor         *Party     `json:"doctor,omitempty"`
}

// Involves reports whether userID is the patient or the doctor.
func (r *Request) Involves(userID string) bool {
	return r.PatientID == userID || r.DoctorID == userID
}

// Counterpart returns the party that did not send the request.
func (r *Request) Counterpart() string {
	if r.RequestedBy == r.PatientID {
		return r.DoctorID
	}
	return r.PatientID
}

type CreateRequest struct {
	TargetID string `json:"targetId"`
	Level    string `json:"level,omitempty"`
	Message  string `json:"message,omitempty"`
}

// RespondRequest optionally lets an accepting patient choose the level.
type RespondRequest struct {
	Level string `json:"level,omitempty"`
}

// Direction values for ListFilter.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

type ListFilter struct {
	Status    string
	Direction string
}
