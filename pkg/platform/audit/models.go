package audit

import (
	"context"
	"time"

	id "signup/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers account creation and deletion.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers rejected registrations (duplicate emails can
	// indicate enumeration attempts).
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers consistency issues that need an operator.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the registration flow to capture key actions. It is
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Action    string
	Decision  string
	Reason    string
	// Email is always masked before it reaches an event.
	Email     string
	RequestID string
	ClientIP  string
	Device    string
}

type AuditEvent string

const (
	EventRegistrationSucceeded AuditEvent = "registration_succeeded"
	EventRegistrationFailed    AuditEvent = "registration_failed"
	// EventProfileOrphaned records an identity account left without a profile row.
	EventProfileOrphaned    AuditEvent = "profile_orphaned"
	EventAccountRolledBack  AuditEvent = "account_rolled_back"
	EventAccountRollbackErr AuditEvent = "account_rollback_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRegistrationSucceeded: CategoryCompliance,
	EventAccountRolledBack:     CategoryCompliance,
	EventRegistrationFailed:    CategorySecurity,
	EventProfileOrphaned:       CategoryOperations,
	EventAccountRollbackErr:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
