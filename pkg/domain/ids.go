package domain

import (
	"github.com/google/uuid"

	dErrors "signup/pkg/domain-errors"
)

// UserID identifies an account in the identity service. The identity service
// is the system of record; profile rows are keyed by the same value.
type UserID uuid.UUID

// ParseUserID parses an identity-service user identifier at a trust boundary.
// Empty, malformed and nil UUIDs are rejected.
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "user ID is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid user ID format")
	}
	if parsed == uuid.Nil {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "user ID cannot be nil")
	}
	return UserID(parsed), nil
}

// NewUserID returns a random user ID. Used by in-memory identity services.
func NewUserID() UserID {
	return UserID(uuid.New())
}

func (id UserID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

func (id UserID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid user ID format")
	}
	*id = UserID(parsed)
	return nil
}
