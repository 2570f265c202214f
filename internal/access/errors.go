package access

import "github.com/medconnect/backend/internal/apierror"

var (
	ErrGrantNotFound = apierror.NotFound("no active access grant for this doctor")
	ErrInvalidLevel  = apierror.Validation("level must be LECTURE or ECRITURE")
	ErrNotConnected  = apierror.Forbidden("users are not connected through an active access grant")
	ErrNoReadAccess  = apierror.Forbidden("no read access to this patient's dossier")
	ErrNoWriteAccess = apierror.Forbidden("no write access to this patient's dossier")
)
