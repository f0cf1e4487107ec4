package shared

import "errors"

// Sentinel errors shared across modules. Handlers map these to HTTP statuses
// through httpx.RespondError; services return them as values, never panic.
var (
	// ErrInvalidInput indicates a missing or malformed request field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials covers both unknown login codes and wrong
	// passwords so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive indicates a deactivated account.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountUnverified indicates the account has not completed email verification.
	ErrAccountUnverified = errors.New("account not verified")
	// ErrTenantMismatch indicates the supplied company code does not match the account.
	ErrTenantMismatch = errors.New("tenant mismatch")
	// ErrApplicationToken indicates the application access/secret pair failed validation.
	ErrApplicationToken = errors.New("application token invalid")
	// ErrPermissionDenied indicates an authorization check failed.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("duplicate entry")
)

// UserSafeMessage returns a message suitable for API clients. Internal faults
// collapse to a generic message so store details never leak.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "Invalid request"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, ErrAccountInactive):
		return "Account is inactive"
	case errors.Is(err, ErrAccountUnverified):
		return "Account is not verified"
	case errors.Is(err, ErrTenantMismatch):
		return "Company does not match account"
	case errors.Is(err, ErrApplicationToken):
		return "Application token is invalid"
	case errors.Is(err, ErrPermissionDenied):
		return "Permission denied"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrDuplicate):
		return "Already exists"
	default:
		return "Internal error"
	}
}

// IsUserFacing reports whether err is one of the sentinel errors above.
// Anything else is an internal fault and should be logged.
func IsUserFacing(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidInput,
		ErrInvalidCredentials,
		ErrAccountInactive,
		ErrAccountUnverified,
		ErrTenantMismatch,
		ErrApplicationToken,
		ErrPermissionDenied,
		ErrNotFound,
		ErrDuplicate,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
