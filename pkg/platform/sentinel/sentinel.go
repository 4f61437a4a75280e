package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and remote clients return
// these (optionally wrapped) so the registration service can translate them
// into domain errors:
// - ErrNotFound: record or account does not exist
// - ErrConflict: a record with the same key already exists
// - ErrUnavailable: remote service or backing store cannot be reached
// - ErrInFlight: another submission holds the same key
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
	ErrInFlight    = errors.New("in flight")
)
