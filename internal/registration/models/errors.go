package models

import (
	id "signup/pkg/domain"
	dErrors "signup/pkg/domain-errors"
)

const (
	FallbackAuthMessage    = "failed to register account"
	FallbackProfileMessage = "failed to save user profile"
)

// ValidationError is the first local rule an input violates.
type ValidationError struct {
	Field   Field
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) DomainCode() dErrors.Code { return dErrors.CodeValidation }

func (e *ValidationError) FieldName() string { return string(e.Field) }

// AuthErrorKind classifies identity service rejections.
type AuthErrorKind string

const (
	AuthDuplicate    AuthErrorKind = "duplicate"
	AuthWeakPassword AuthErrorKind = "weak_password"
	AuthRateLimited  AuthErrorKind = "rate_limited"
	AuthUnavailable  AuthErrorKind = "unavailable"
	AuthRejected     AuthErrorKind = "rejected"
)

// AuthError reports that the identity service did not create the account.
// Message is the service's own text and is shown to the user verbatim.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

// NewAuthError builds an AuthError, substituting the fallback message when
// the service gave none.
func NewAuthError(kind AuthErrorKind, message string, err error) *AuthError {
	if message == "" {
		message = FallbackAuthMessage
	}
	return &AuthError{Kind: kind, Message: message, Err: err}
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return FallbackAuthMessage
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) DomainCode() dErrors.Code {
	switch e.Kind {
	case AuthDuplicate:
		return dErrors.CodeConflict
	case AuthWeakPassword:
		return dErrors.CodeUnprocessable
	case AuthRateLimited:
		return dErrors.CodeRateLimited
	case AuthUnavailable:
		return dErrors.CodeBadGateway
	default:
		return dErrors.CodeBadRequest
	}
}

// ProfileWriteError reports that the account exists but its profile row was
// not written. UserID identifies the orphaned account.
type ProfileWriteError struct {
	UserID  id.UserID
	Message string
	Err     error
}

func NewProfileWriteError(userID id.UserID, message string, err error) *ProfileWriteError {
	if message == "" {
		message = FallbackProfileMessage
	}
	return &ProfileWriteError{UserID: userID, Message: message, Err: err}
}

func (e *ProfileWriteError) Error() string {
	if e.Message == "" {
		return FallbackProfileMessage
	}
	return e.Message
}

func (e *ProfileWriteError) Unwrap() error { return e.Err }

func (e *ProfileWriteError) DomainCode() dErrors.Code { return dErrors.CodeProfileWriteFailed }
