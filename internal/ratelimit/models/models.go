// Package models defines the rate-limit domain types.
package models

import "time"

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	// RetryAfter in seconds; only set when not allowed.
	RetryAfter int `json:"retry_after,omitempty"`

	// Blocked is true while the client sits in the punitive block cache.
	Blocked      bool      `json:"blocked,omitempty"`
	BlockedUntil time.Time `json:"blocked_until,omitzero"`
	// NewlyBlocked marks the request that tripped the block, so callers can
	// emit the audit event exactly once.
	NewlyBlocked bool `json:"-"`
}

// KeyPrefixClient namespaces bucket keys by client address.
const KeyPrefixClient = "rl:client:"

// ClientKey builds the bucket key for a client address.
func ClientKey(clientKey string) string {
	return KeyPrefixClient + clientKey
}
