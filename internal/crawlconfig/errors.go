package crawlconfig

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the store and the coordination service.
var (
	// ErrNotFound indicates no record matched the id within the caller's
	// ownership boundary.
	ErrNotFound = errors.New("crawl config not found")

	// ErrDuplicateKey indicates an insert collided on the record id.
	ErrDuplicateKey = errors.New("crawl config id already exists")

	// ErrManagerUnavailable is a transient orchestrator failure; the whole
	// operation is safe to retry.
	ErrManagerUnavailable = errors.New("crawl manager unavailable")
)

// ValidationError rejects a payload before any state is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid crawl config: %s: %s", e.Field, e.Reason)
}

// RegistrationError reports that a record was persisted but the initial
// orchestrator registration failed. The record is kept; the registration is
// pending and must be re-driven by retrying with the same id.
type RegistrationError struct {
	ConfigID string
	Err      error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("crawl config %s stored but orchestrator registration failed: %v", e.ConfigID, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// SyncError reports that a store write succeeded but the follow-up
// orchestrator call failed. Stored state is authoritative; orchestrator state
// is stale until the caller retries the same operation.
type SyncError struct {
	ConfigID string
	Op       string
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("orchestrator %s out of sync for crawl config %s: %v", e.Op, e.ConfigID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
