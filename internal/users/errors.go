package users

import "github.com/medconnect/backend/internal/apierror"

var (
	ErrUserNotFound        = apierror.NotFound("user not found")
	ErrDoctorNotFound      = apierror.NotFound("doctor not found")
	ErrNoFieldsToUpdate    = apierror.Validation("no fields to update")
	ErrMissingFirstName    = apierror.Validation("first name is required")
	ErrMissingLastName     = apierror.Validation("last name is required")
	ErrSpecialtyNotAllowed = apierror.Validation("only doctors have a specialty")
	ErrInvalidDateOfBirth  = apierror.Validation("date of birth must be YYYY-MM-DD")
	ErrInvalidRole         = apierror.Validation("invalid role")
	ErrMissingStatus       = apierror.Validation("isActive is required")
	ErrNotADoctor          = apierror.Validation("user is not a doctor")
	ErrAlreadyVerified     = apierror.Conflict("doctor is already verified")
	ErrEmailTaken          = apierror.Conflict("email is already registered")
	ErrSelfModification    = apierror.Forbidden("administrators cannot deactivate or delete themselves")
)
