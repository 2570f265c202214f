package connection

import "github.com/medconnect/backend/internal/apierror"

var (
	ErrRequestNotFound   = apierror.NotFound("connection request not found")
	ErrTargetNotFound    = apierror.NotFound("target user not found")
	ErrMissingTarget     = apierror.Validation("targetId is required")
	ErrMessageTooLong    = apierror.Validation("message must be at most 1000 characters")
	ErrInvalidStatus     = apierror.Validation("status must be one of EN_ATTENTE, ACCEPTEE, REFUSEE, ANNULEE")
	ErrInvalidDirection  = apierror.Validation("direction must be incoming or outgoing")
	ErrInvalidTarget     = apierror.Validation("a patient can only connect to a doctor and a doctor to a patient")
	ErrDoctorNotVerified = apierror.Validation("doctor is not verified")
	ErrTargetInactive    = apierror.Validation("target account is inactive")
	ErrAlreadyConnected  = apierror.Conflict("an active access grant already exists")
	ErrPendingExists     = apierror.Conflict("a pending request already exists for this pair")
	ErrNotPending        = apierror.Conflict("request is no longer pending")
	ErrNotCounterpart    = apierror.Forbidden("only the recipient may respond to this request")
	ErrNotRequester      = apierror.Forbidden("only the requester may cancel this request")
	ErrNotParty          = apierror.Forbidden("not a party to this request")
)
