package dossier

import (
	"strings"
	"time"
)

// Entry types
const (
	EntryConsultation = "CONSULTATION"
	EntryDiagnostic   = "DIAGNOSTIC"
	EntryPrescription = "PRESCRIPTION"
	EntryAnalyse      = "ANALYSE"
	EntryNote         = "NOTE"
)

const (
	maxTitleLength   = 200
	maxContentLength = 20000
)

var bloodTypes = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

func validEntryType(t string) bool {
	switch t {
	case EntryConsultation, EntryDiagnostic, EntryPrescription, EntryAnalyse, EntryNote:
		return true
	}
	return false
}

// Dossier is a patient's medical record header.
type Dossier struct {
	ID                    string     `json:"id"`
	PatientID             string     `json:"patientId"`
	BloodType             *string    `json:"bloodType,omitempty"`
	Allergies             []string   `json:"allergies"`
	ChronicConditions     []string   `json:"chronicConditions"`
	CurrentTreatments     []string   `json:"currentTreatments"`
	EmergencyContactName  *string    `json:"emergencyContactName,omitempty"`
	EmergencyContactPhone *string    `json:"emergencyContactPhone,omitempty"`
	Notes                 *string    `json:"notes,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy             *string    `json:"updatedBy,omitempty"`
}

// UpdateRequest carries header fields to change. Nil fields are left as is.
type UpdateRequest struct {
	BloodType             *string   `json:"bloodType,omitempty"`
	Allergies             *[]string `json:"allergies,omitempty"`
	ChronicConditions     *[]string `json:"chronicConditions,omitempty"`
	CurrentTreatments     *[]string `json:"currentTreatments,omitempty"`
	EmergencyContactName  *string   `json:"emergencyContactName,omitempty"`
	EmergencyContactPhone *string   `json:"emergencyContactPhone,omitempty"`
	Notes                 *string   `json:"notes,omitempty"`
}

func (r *UpdateRequest) empty() bool {
	return r.BloodType == nil && r.Allergies == nil && r.ChronicConditions == nil &&
		r.CurrentTreatments == nil && r.EmergencyContactName == nil &&
		r.EmergencyContactPhone == nil && r.Notes == nil
}

// Normalize trims list items and drops blanks, then validates.
func (r *UpdateRequest) Normalize() error {
	if r.empty() {
		return ErrNoFieldsToUpdate
	}
	if r.BloodType != nil {
		bt := strings.ToUpper(strings.TrimSpace(*r.BloodType))
		if bt != "" && !bloodTypes[bt] {
			return ErrInvalidBloodType
		}
		r.BloodType = &bt
	}
	for _, list := range []*[]string{r.Allergies, r.ChronicConditions, r.CurrentTreatments} {
		if list != nil {
			*list = cleanList(*list)
		}
	}
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// Entry is an immutable record item written by a doctor.
type Entry struct {
	ID         string    `json:"id"`
	DossierID  string    `json:"dossierId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName,omitempty"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

type CreateEntryRequest struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (r *CreateEntryRequest) Validate() error {
	r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
	r.Title = strings.TrimSpace(r.Title)
	if !validEntryType(r.Type) {
		return ErrInvalidEntryType
	}
	if r.Title == "" || len(r.Title) > maxTitleLength {
		return ErrInvalidTitle
	}
	if strings.TrimSpace(r.Content) == "" || len(r.Content) > maxContentLength {
		return ErrInvalidContent
	}
	return nil
}

// EntryFilter narrows an entry listing.
type EntryFilter struct {
	Type string
}
