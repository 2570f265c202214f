package appointment

import "github.com/medconnect/backend/internal/apierror"

var (
	ErrNotFound               = apierror.NotFound("appointment not found")
	ErrMissingCounterpart     = apierror.Validation("counterpartId is required")
	ErrNotInFuture            = apierror.Validation("scheduledAt must be in the future")
	ErrInvalidDuration        = apierror.Validation("durationMinutes must be between 15 and 240")
	ErrReasonTooLong          = apierror.Validation("reason must be at most 1000 characters")
	ErrInvalidStatus          = apierror.Validation("status must be one of DEMANDE, CONFIRME, ANNULE, TERMINE")
	ErrInvalidRange           = apierror.Validation("from must be before to")
	ErrInvalidTransition      = apierror.Conflict("appointment cannot move to this status from its current status")
	ErrDoctorBusy             = apierror.Conflict("doctor already has a confirmed appointment at this time")
	ErrNotYetStarted          = apierror.Conflict("appointment has not started yet")
	ErrRequesterCannotConfirm = apierror.Forbidden("only the invited party may confirm")
	ErrDoctorOnly             = apierror.Forbidden("only the doctor may complete an appointment")
)
