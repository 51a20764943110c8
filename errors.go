package identity

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside the HTTP status
const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeDuplicateIdentity  = "DUPLICATE_IDENTITY"
	TextCodeAccountSuspended   = "ACCOUNT_SUSPENDED"
	TextCodeAccountNotActive   = "ACCOUNT_NOT_ACTIVE"
	TextCodeResetNotPermitted  = "RESET_NOT_PERMITTED"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeSessionRevoked     = "SESSION_REVOKED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeEmptyUpdate        = "EMPTY_UPDATE"
	TextCodeAdminRequired      = "ADMIN_ROLE_REQUIRED"
	TextCodeAdminSelfDelete    = "ADMIN_SELF_DELETE"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeClaimsMappingError = "CLAIMS_MAPPING_ERROR"
	TextCodeDataParseError     = "DATA_PARSE_ERROR"
)

// ErrIdentityNotFound is returned when no non-deleted account matches
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrMismatchedHashAndPassword is returned when password verification fails
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateIdentity is returned when an active or suspended account
// already holds the email or phone
var ErrDuplicateIdentity = errors.New("email or phone already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity).
	WithCode(errors.CodeConflict)

// ErrAccountSuspended blocks logins against suspended accounts
var ErrAccountSuspended = errors.New("account is suspended", errors.CategoryAuthz).
	WithTextCode(TextCodeAccountSuspended).
	WithCode(errors.CodeForbidden)

// ErrAccountNotActive is returned by operations that require an active account
var ErrAccountNotActive = errors.New("account is not active", errors.CategoryAuth).
	WithTextCode(TextCodeAccountNotActive).
	WithCode(errors.CodeUnauthorized)

// ErrResetNotPermitted is returned when a password reset cannot be issued for
// the supplied email. Deliberately an auth error, not a lookup error, so the
// response does not separate unknown addresses from known ones.
var ErrResetNotPermitted = errors.New("password reset not permitted for this identity", errors.CategoryAuth).
	WithTextCode(TextCodeResetNotPermitted).
	WithCode(errors.CodeUnauthorized)

// ErrSessionNotFound is returned when a token yields no matching session record
var ErrSessionNotFound = errors.New("no session matches the supplied token", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrSessionRevoked is returned when the matching session record is no longer active
var ErrSessionRevoked = errors.New("session is no longer active", errors.CategoryAuth).
	WithTextCode(TextCodeSessionRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired signals a token whose expiry has passed
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers any signature or format failure; we do not
// distinguish tampering from malformed input
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrEmptyUpdate is returned when a profile update carries no fields
var ErrEmptyUpdate = errors.New("no fields to update", errors.CategoryBadInput).
	WithTextCode(TextCodeEmptyUpdate).
	WithCode(errors.CodeBadRequest)

// ErrAdminRequired is returned when a non-admin acts on another account
var ErrAdminRequired = errors.New("admin role required", errors.CategoryAuthz).
	WithTextCode(TextCodeAdminRequired).
	WithCode(errors.CodeForbidden)

// ErrAdminSelfDelete blocks admins from deleting their own account
var ErrAdminSelfDelete = errors.New("admin accounts cannot self-delete", errors.CategoryAuthz).
	WithTextCode(TextCodeAdminSelfDelete).
	WithCode(errors.CodeForbidden)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithTextCode(TextCodeClaimsMappingError).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data", errors.CategoryBadInput).
	WithTextCode(TextCodeDataParseError).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// StatusFromError maps an error to the HTTP status the API surfaces.
// Storage failures and anything uncategorized collapse to 500.
func StatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var rich *errors.Error
	if !errors.As(err, &rich) {
		return http.StatusInternalServerError
	}

	switch rich.Category {
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryBadInput, errors.CategoryValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
