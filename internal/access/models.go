package access

import "time"

// Access levels a patient grants to a doctor.
const (
	LevelLecture  = "LECTURE"
	LevelEcriture = "ECRITURE"
)

func ValidLevel(level string) bool {
	return level == LevelLecture || level == LevelEcriture
}

// Party is the counterpart shown in grant listings.
type Party struct {
	ID        string  `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Specialty *string `json:"specialty,omitempty"`
}

// Grant is a patient's access grant to a doctor.
type Grant struct {
	ID        string     `json:"id"`
	PatientID string     `json:"patientId"`
	DoctorID  string     `json:"doctorId"`
	Level     string     `json:"level"`
	GrantedAt time.Time  `json:"grantedAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	Doctor    *Party     `json:"doctor,omitempty"`
	Patient   *Party     `json:"patient,omitempty"`
}

func (g *Grant) Active() bool {
	return g.RevokedAt == nil
}

// CanRead reports whether the grant allows reading the dossier.
func (g *Grant) CanRead() bool {
	return g.Active() && ValidLevel(g.Level)
}

// CanWrite reports whether the grant allows writing the dossier.
func (g *Grant) CanWrite() bool {
	return g.Active() && g.Level == LevelEcriture
}

type ChangeLevelRequest struct {
	Level string `json:"level"`
}
