package appointment

import "time"

// Appointment statuses
const (
	StatusRequested = "DEMANDE"
	StatusConfirmed = "CONFIRME"
	StatusCancelled = "ANNULE"
	StatusCompleted = "TERMINE"
)

const (
	MinDuration     = 15
	MaxDuration     = 240
	DefaultDuration = 30
	maxReasonLength = 1000
)

func validStatus(s string) bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

type Appointment struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patientId"`
	DoctorID        string    `json:"doctorId"`
	RequestedBy     string    `json:"requestedBy"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationMinutes int       `json:"durationMinutes"`
	Reason          *string   `json:"reason,omitempty"`
	Location        *string   `json:"location,omitempty"`
	Status          string    `json:"status"`
	CancelReason    *string   `json:"cancelReason,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

func (a *Appointment) Involves(userID string) bool {
	return a.PatientID == userID || a.DoctorID == userID
}

// Other returns the party that is not userID.
func (a *Appointment) Other(userID string) string {
	if a.PatientID == userID {
		return a.DoctorID
	}
	return a.PatientID
}

type CreateRequest struct {
	CounterpartID   string    `json:"counterpartId"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationMinutes int       `json:"durationMinutes,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	Location        string    `json:"location,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ListFilter narrows an appointment listing. From and To bound scheduled_at.
type ListFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
}
