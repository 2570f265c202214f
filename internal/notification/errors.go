package notification

import "github.com/medconnect/backend/internal/apierror"

var (
	ErrNotFound      = apierror.NotFound("notification not found")
	ErrMissingUser   = apierror.Validation("notification recipient is required")
	ErrMissingTitle  = apierror.Validation("notification title is required")
	ErrStreamBackend = apierror.Internal("notification stream unavailable", nil)
)
