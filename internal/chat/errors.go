package chat

import "github.com/medconnect/backend/internal/apierror"

var (
	ErrMissingRecipient   = apierror.Validation("recipientId is required")
	ErrSelfMessage        = apierror.Validation("cannot send a message to yourself")
	ErrInvalidBody        = apierror.Validation("body must be between 1 and 5000 characters")
	ErrAttachmentNotOwned = apierror.Forbidden("attachment must be a file you uploaded")
)
