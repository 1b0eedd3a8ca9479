// Package domain defines domain-level errors for the alert feature.
package domain

import "errors"

// Domain errors for alert evaluation and state transitions.
// Callers match them with errors.Is; they are always wrapped with context.
var (
	// ErrAlertNotFound indicates that no alert exists for the given id and owner.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrMalformedCondition indicates that an alert's condition cannot be evaluated.
	// The alert is skipped and flagged, never deleted.
	ErrMalformedCondition = errors.New("malformed alert condition")

	// ErrNotEligible indicates that a fire was rejected because the alert is
	// inactive or still cooling down at commit time.
	ErrNotEligible = errors.New("alert not eligible to fire")

	// ErrDeliveryFailure indicates that the notification sink could not accept the event.
	// It is recorded on the alert log row and never rolls back the fire.
	ErrDeliveryFailure = errors.New("notification delivery failed")
)
