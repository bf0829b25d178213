// Package domainerrors defines the coded error type shared across the gateway.
//
// Services return these instead of raw errors so the HTTP layer can translate
// them into status codes and stable JSON error envelopes without string matching.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the class of failure.
type Code string

const (
	// CodeUnauthorized: missing or invalid credential (401).
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden: client address rejected by the allow-list (403).
	CodeForbidden Code = "access_denied"
	// CodeRateLimited: sliding-window threshold exceeded or client blocked (429).
	CodeRateLimited Code = "rate_limit_exceeded"
	// CodePayloadTooLarge: request body above the configured ceiling (413).
	CodePayloadTooLarge Code = "payload_too_large"
	// CodeMaliciousContent: request body matched a blocked pattern (400).
	CodeMaliciousContent Code = "malicious_content"
	// CodeBadRequest: malformed or incomplete request (400).
	CodeBadRequest Code = "bad_request"
	// CodeNotFound: unknown backend target or device (404).
	CodeNotFound Code = "not_found"
	// CodeInternal: unexpected failure; description is never surfaced (500).
	CodeInternal Code = "internal_error"
)

// Error carries a code plus a human-readable description.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a domain error with the given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeMaliciousContent, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
