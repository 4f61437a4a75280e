package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "signup/pkg/domain"
	dErrors "signup/pkg/domain-errors"
)

func TestRegistrationInput_WithOnlyTouchesOneField(t *testing.T) {
	in := RegistrationInput{Name: "Ana", Email: "ana@example.com"}

	out := in.With(FieldPassword, "secret1")

	assert.Equal(t, "secret1", out.Password)
	assert.Equal(t, "Ana", out.Name)
	assert.Equal(t, "ana@example.com", out.Email)
	assert.Empty(t, in.Password, "original value is not mutated")
	assert.Equal(t, out, out.With(Field("nickname"), "x"))
}

func TestTouchedFlags(t *testing.T) {
	var touched TouchedFlags
	for _, f := range Fields {
		assert.False(t, touched.Has(f))
	}
	touched = touched.With(FieldEmail)
	assert.True(t, touched.Has(FieldEmail))
	assert.False(t, touched.Has(FieldName))
	assert.Equal(t, TouchedFlags{Name: true, Email: true, Password: true, ConfirmPassword: true}, AllTouched())
}

func TestSubmissionResult(t *testing.T) {
	assert.True(t, Success().Succeeded())
	assert.Empty(t, Success().Message())

	failed := Failure("User already registered")
	assert.False(t, failed.Succeeded())
	assert.Equal(t, "User already registered", failed.Message())
}

func TestProfileRecord_MarshalJSON(t *testing.T) {
	userID, err := id.ParseUserID("5f0c8f4e-2b8a-4c3e-9d1a-7b6e5c4d3a21")
	require.NoError(t, err)
	loc := time.FixedZone("CET", 3600)

	body, err := json.Marshal(ProfileRecord{
		ID:        userID,
		FullName:  "Ana",
		Email:     "ana@example.com",
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 123456789, loc),
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": "5f0c8f4e-2b8a-4c3e-9d1a-7b6e5c4d3a21",
		"full_name": "Ana",
		"email": "ana@example.com",
		"created_at": "2026-03-01T09:00:00.123Z"
	}`, string(body))
}

func TestErrors_DomainCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code dErrors.Code
		msg  string
	}{
		{"validation", &ValidationError{Field: FieldEmail, Message: "email required"}, dErrors.CodeValidation, "email required"},
		{"duplicate", NewAuthError(AuthDuplicate, "User already registered", nil), dErrors.CodeConflict, "User already registered"},
		{"weak password", NewAuthError(AuthWeakPassword, "Password should be stronger", nil), dErrors.CodeUnprocessable, "Password should be stronger"},
		{"rate limited", NewAuthError(AuthRateLimited, "", nil), dErrors.CodeRateLimited, FallbackAuthMessage},
		{"unavailable", NewAuthError(AuthUnavailable, "", errors.New("dial tcp")), dErrors.CodeBadGateway, FallbackAuthMessage},
		{"rejected", NewAuthError(AuthRejected, "Signups not allowed", nil), dErrors.CodeBadRequest, "Signups not allowed"},
		{"profile", NewProfileWriteError(id.NewUserID(), "", nil), dErrors.CodeProfileWriteFailed, FallbackProfileMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, dErrors.CodeOf(tt.err))
			assert.Equal(t, tt.msg, tt.err.Error())
		})
	}
}

func TestAuthError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAuthError(AuthUnavailable, "", cause)
	assert.ErrorIs(t, err, cause)

	var zero AuthError
	assert.Equal(t, FallbackAuthMessage, zero.Error())
}

func TestValidationError_FieldName(t *testing.T) {
	err := &ValidationError{Field: FieldConfirmPassword, Message: "passwords do not match"}
	assert.Equal(t, "confirm_password", err.FieldName())
	assert.Equal(t, "confirm password", FieldConfirmPassword.Label())
	assert.Equal(t, "email", FieldEmail.Label())
}
