// Package domainerrors carries coded errors across service and transport
// layers. Services return these (optionally wrapping a cause) and the HTTP
// layer translates the code into a status and JSON envelope.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is a stable, client-visible error identifier.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_error"
	CodeConflict           Code = "conflict"
	CodeUnprocessable      Code = "unprocessable_entity"
	CodeRateLimited        Code = "rate_limited"
	CodeBadGateway         Code = "bad_gateway"
	CodeProfileWriteFailed Code = "profile_write_failed"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Coder is implemented by typed domain errors that map onto a Code without
// being an *Error themselves.
type Coder interface {
	DomainCode() Code
}

// New returns a coded error with a client-safe message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf reports the code carried by err, falling back to CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	var coder Coder
	if errors.As(err, &coder) {
		return coder.DomainCode()
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// ToHTTPStatus maps a code onto an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeValidation:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeUnprocessable:
		return http.StatusUnprocessableEntity
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeBadGateway, CodeProfileWriteFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
