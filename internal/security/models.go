// Package security defines the shared types for the gateway's security
// subsystem: audit events and their severities.
package security

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies how serious a security event is.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
)

// Event types emitted by the security gate and its collaborators.
const (
	EventIPBlocked         = "ip_blocked"
	EventRateLimitExceeded = "rate_limit_exceeded"
	EventRequestTooLarge   = "request_too_large"
	EventMaliciousRequest  = "malicious_request"
	EventInvalidAuth       = "invalid_auth"
	EventBackendFailure    = "backend_failure"
	EventRequestRejected   = "request_rejected"
)

// Event is an append-only audit record. Never mutated after creation.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Severity  Severity  `json:"severity"`
	ClientKey string    `json:"client_key"`
	Details   string    `json:"details"`
}

// NewEvent builds an Event stamped with the given time.
func NewEvent(now time.Time, eventType string, severity Severity, clientKey, details string) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: now,
		Type:      eventType,
		Severity:  severity,
		ClientKey: clientKey,
		Details:   details,
	}
}
