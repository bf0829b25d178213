// Package httputil centralizes JSON response writing so every handler and
// middleware emits the same envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "attendgate/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the standard error envelope.
// Internal errors omit the description so nothing leaks to callers.
func WriteError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		de = dErrors.New(dErrors.CodeInternal, "")
	}
	status := dErrors.ToHTTPStatus(de.Code)

	body := map[string]string{"error": string(de.Code)}
	if de.Code != dErrors.CodeInternal && de.Message != "" {
		body["error_description"] = de.Message
	}

	if de.Code == dErrors.CodeUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	WriteJSON(w, status, body)
}
