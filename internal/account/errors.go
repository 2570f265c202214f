package account

import (
	"github.com/medconnect/backend/internal/apierror"
)

var (
	ErrInvalidEmail          = apierror.Validation("a valid email is required")
	ErrInvalidRole           = apierror.Validation("role must be PATIENT or DOCTOR")
	ErrDoctorDetailsRequired = apierror.Validation("doctors must provide a specialty and a license number")
	ErrMissingCredentials    = apierror.Validation("email and password are required")
	ErrMissingChallenge      = apierror.Validation("challengeId and code are required")
	ErrMissingRefreshToken   = apierror.Validation("refreshToken is required")
	ErrSamePassword          = apierror.Validation("new password must differ from the current one")

	ErrInvalidCredentials = apierror.Unauthorized("invalid email or password")
	ErrInvalidCode        = apierror.Unauthorized("invalid verification code")
	ErrChallengeExpired   = apierror.Unauthorized("verification challenge expired or exhausted")
	ErrInvalidRefresh     = apierror.Unauthorized("invalid or expired refresh token")
	ErrRefreshReused      = apierror.Unauthorized("refresh token reuse detected; all sessions revoked")
	ErrWrongPassword      = apierror.Unauthorized("current password is incorrect")

	ErrAccountInactive = apierror.Forbidden("account is deactivated")
	ErrAccountLocked   = apierror.RateLimited("too many failed login attempts; try again later")
)

func weakPassword(err error) error {
	return apierror.Validation(err.Error())
}
