package handler

import "signup/internal/registration/models"

// RegisterResponse is returned with 201 after the account is created.
type RegisterResponse struct {
	UserID             string `json:"user_id,omitempty"`
	Email              string `json:"email"`
	Message            string `json:"message"`
	VerificationNotice string `json:"verification_notice"`
	LoginURL           string `json:"login_url"`
}

// ValidateRequest carries the current field values and which fields the user
// has already left.
type ValidateRequest struct {
	models.RegistrationInput
	Touched models.TouchedFlags `json:"touched"`
}

type ValidateResponse struct {
	Valid       bool              `json:"valid"`
	FieldErrors map[string]string `json:"field_errors"`
	Error       string            `json:"error,omitempty"`
	Field       string            `json:"field,omitempty"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
