package dossier

import "github.com/medconnect/backend/internal/apierror"

var (
	ErrDossierNotFound  = apierror.NotFound("dossier not found")
	ErrEntryNotFound    = apierror.NotFound("dossier entry not found")
	ErrNoFieldsToUpdate = apierror.Validation("no fields to update")
	ErrInvalidBloodType = apierror.Validation("bloodType must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
	ErrInvalidEntryType = apierror.Validation("type must be one of CONSULTATION, DIAGNOSTIC, PRESCRIPTION, ANALYSE, NOTE")
	ErrInvalidTitle     = apierror.Validation("title is required and must be at most 200 characters")
	ErrInvalidContent   = apierror.Validation("content is required and must be at most 20000 characters")
	ErrNotEntryAuthor   = apierror.Forbidden("only the author may delete an entry")
	ErrDoctorOnly       = apierror.Forbidden("only doctors may add dossier entries")
)
