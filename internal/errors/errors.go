package appErrors

import (
	"fmt"

	"github.com/reviewloop/outreach-backend/internal/model"
)

// ErrRateLimitExceeded is returned when a contact attempt would exceed a
// frequency ceiling or the customer has opted out. Window identifies which
// check failed (empty for opt-out).
type ErrRateLimitExceeded struct {
	TenantID   string
	CustomerID string
	Window     model.RateWindow
	Reason     string
}

func (e *ErrRateLimitExceeded) Error() string {
	if e.Window == "" {
		return fmt.Sprintf("contact to customer %s blocked: %s", e.CustomerID, e.Reason)
	}
	return fmt.Sprintf("contact to customer %s blocked: %s limit reached", e.CustomerID, e.Window)
}

// ErrAlreadyActive is returned when a nurture sequence is started for a lead
// that already has an active one. Existing carries the live sequence so the
// caller can return it unchanged.
type ErrAlreadyActive struct {
	Existing *model.NurtureSequence
}

func (e *ErrAlreadyActive) Error() string {
	return fmt.Sprintf("lead %s already has an active nurture sequence %s", e.Existing.LeadID, e.Existing.ID)
}

// ErrNoActiveSequence is returned when an inbound message arrives for a lead
// with no active sequence.
type ErrNoActiveSequence struct {
	TenantID string
	LeadID   string
}

func (e *ErrNoActiveSequence) Error() string {
	return fmt.Sprintf("no active nurture sequence for lead %s", e.LeadID)
}

// ErrNotFound is a generic missing-record error.
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ErrSafetyBlocked is returned when a candidate message fails the safety
// check with a block verdict.
type ErrSafetyBlocked struct {
	Violations []string
}

func (e *ErrSafetyBlocked) Error() string {
	return fmt.Sprintf("message blocked by safety rules: %v", e.Violations)
}

// ErrDeliveryFailed wraps a transport collaborator error. State is left
// unchanged by the caller so the next scheduler tick retries.
type ErrDeliveryFailed struct {
	Method model.DeliveryMethod
	Cause  error
}

func (e *ErrDeliveryFailed) Error() string {
	return fmt.Sprintf("delivery via %s failed: %v", e.Method, e.Cause)
}

func (e *ErrDeliveryFailed) Unwrap() error { return e.Cause }

// ErrValidation is returned for missing or malformed required input fields.
type ErrValidation struct {
	Field  string
	Detail string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// Helper constructors

func NewNotFound(kind, id string) error { return &ErrNotFound{Kind: kind, ID: id} }

func NewValidation(field, detail string) error { return &ErrValidation{Field: field, Detail: detail} }
