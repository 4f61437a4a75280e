// Package registration holds the account registration flow: the pure input
// validator, inline field feedback and the form state machine that drives a
// Submitter.
package registration

import (
	"strings"
	"unicode/utf8"

	"signup/internal/registration/models"
	"signup/pkg/email"
)

// MinPasswordLength is counted in runes.
const MinPasswordLength = 6

const (
	MsgNameRequired     = "name required"
	MsgEmailRequired    = "email required"
	MsgEmailFormat      = "invalid email format"
	MsgPasswordRequired = "password required"
	MsgPasswordShort    = "password too short"
	MsgPasswordMismatch = "passwords do not match"
	MsgConfirmRequired  = "confirm password required"
)

// Validate returns the first violated rule, checked in a fixed order, or nil
// when the input may be submitted.
func Validate(in models.RegistrationInput) *models.ValidationError {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return invalid(models.FieldName, MsgNameRequired)
	case in.Email == "":
		return invalid(models.FieldEmail, MsgEmailRequired)
	case !email.MatchesShape(in.Email):
		return invalid(models.FieldEmail, MsgEmailFormat)
	case in.Password == "":
		return invalid(models.FieldPassword, MsgPasswordRequired)
	case utf8.RuneCountInString(in.Password) < MinPasswordLength:
		return invalid(models.FieldPassword, MsgPasswordShort)
	case in.Password != in.ConfirmPassword:
		return invalid(models.FieldConfirmPassword, MsgPasswordMismatch)
	}
	return nil
}

func invalid(f models.Field, msg string) *models.ValidationError {
	return &models.ValidationError{Field: f, Message: msg}
}

// FieldErrors computes the inline message for each field. Required-field
// messages wait until the field has been touched; length and mismatch
// messages show as soon as there is something to compare.
func FieldErrors(in models.RegistrationInput, touched models.TouchedFlags) map[models.Field]string {
	out := make(map[models.Field]string)

	if touched.Name && strings.TrimSpace(in.Name) == "" {
		out[models.FieldName] = MsgNameRequired
	}
	if touched.Email && in.Email == "" {
		out[models.FieldEmail] = MsgEmailRequired
	}

	switch {
	case touched.Password && in.Password == "":
		out[models.FieldPassword] = MsgPasswordRequired
	case in.Password != "" && utf8.RuneCountInString(in.Password) < MinPasswordLength:
		out[models.FieldPassword] = MsgPasswordShort
	}

	switch {
	case touched.ConfirmPassword && in.ConfirmPassword == "":
		out[models.FieldConfirmPassword] = MsgConfirmRequired
	case in.Password != "" && in.ConfirmPassword != "" && in.Password != in.ConfirmPassword:
		out[models.FieldConfirmPassword] = MsgPasswordMismatch
	}

	return out
}
