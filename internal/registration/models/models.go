package models

import (
	"encoding/json"
	"time"

	id "signup/pkg/domain"
)

// Field names one input of the registration form. The string value is the
// wire name used in JSON bodies and error envelopes.
type Field string

const (
	FieldName            Field = "name"
	FieldEmail           Field = "email"
	FieldPassword        Field = "password"
	FieldConfirmPassword Field = "confirm_password"
)

// Fields lists the form inputs in display order.
var Fields = []Field{FieldName, FieldEmail, FieldPassword, FieldConfirmPassword}

// Label is the human name used in inline messages ("email required").
func (f Field) Label() string {
	if f == FieldConfirmPassword {
		return "confirm password"
	}
	return string(f)
}

// RegistrationInput holds the raw values typed by the user. Values are never
// trimmed in place; the validator trims the name when checking it.
type RegistrationInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Value returns the current value of f.
func (in RegistrationInput) Value(f Field) string {
	switch f {
	case FieldName:
		return in.Name
	case FieldEmail:
		return in.Email
	case FieldPassword:
		return in.Password
	case FieldConfirmPassword:
		return in.ConfirmPassword
	}
	return ""
}

// With returns a copy of in with f set to value. Unknown fields leave the
// input unchanged.
func (in RegistrationInput) With(f Field, value string) RegistrationInput {
	switch f {
	case FieldName:
		in.Name = value
	case FieldEmail:
		in.Email = value
	case FieldPassword:
		in.Password = value
	case FieldConfirmPassword:
		in.ConfirmPassword = value
	}
	return in
}

// TouchedFlags records which fields the user has left at least once.
type TouchedFlags struct {
	Name            bool `json:"name"`
	Email           bool `json:"email"`
	Password        bool `json:"password"`
	ConfirmPassword bool `json:"confirm_password"`
}

// AllTouched marks every field, used when a submit fails validation.
func AllTouched() TouchedFlags {
	return TouchedFlags{Name: true, Email: true, Password: true, ConfirmPassword: true}
}

func (t TouchedFlags) Has(f Field) bool {
	switch f {
	case FieldName:
		return t.Name
	case FieldEmail:
		return t.Email
	case FieldPassword:
		return t.Password
	case FieldConfirmPassword:
		return t.ConfirmPassword
	}
	return false
}

func (t TouchedFlags) With(f Field) TouchedFlags {
	switch f {
	case FieldName:
		t.Name = true
	case FieldEmail:
		t.Email = true
	case FieldPassword:
		t.Password = true
	case FieldConfirmPassword:
		t.ConfirmPassword = true
	}
	return t
}

// Phase is the submission lifecycle of a form.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// SubmissionResult is either Success or Failure(message).
type SubmissionResult struct {
	failed  bool
	message string
}

func Success() SubmissionResult {
	return SubmissionResult{}
}

func Failure(message string) SubmissionResult {
	return SubmissionResult{failed: true, message: message}
}

func (r SubmissionResult) Succeeded() bool { return !r.failed }

// Message is the failure text; empty on success.
func (r SubmissionResult) Message() string { return r.message }

// AccountMetadata is attached to the identity record at creation.
type AccountMetadata struct {
	Name string `json:"name"`
}

// CreateAccountRequest is what the identity service needs to create a
// credentialed account. RedirectTarget is where the verification link lands.
type CreateAccountRequest struct {
	Email          string
	Password       string
	Metadata       AccountMetadata
	RedirectTarget string
}

// Account is the identity service's answer. UserID is nil when the service
// withholds it (for example while email confirmation is pending).
type Account struct {
	UserID id.UserID
	Email  string
}

// ProfileTimeLayout renders created_at as ISO-8601 UTC with milliseconds.
const ProfileTimeLayout = "2006-01-02T15:04:05.000Z"

// ProfileRecord is one row of the profiles table.
type ProfileRecord struct {
	ID        id.UserID
	FullName  string
	Email     string
	CreatedAt time.Time
}

type profileJSON struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func (p ProfileRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(profileJSON{
		ID:        p.ID.String(),
		FullName:  p.FullName,
		Email:     p.Email,
		CreatedAt: p.CreatedAt.UTC().Format(ProfileTimeLayout),
	})
}
