package httputil

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "attendgate/pkg/domain-errors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("domain error maps to status and envelope", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded, try again later"))

		assert.Equal(t, 429, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "rate_limit_exceeded", body["error"])
		assert.Equal(t, "rate limit exceeded, try again later", body["error_description"])
	})

	t.Run("unauthorized sets www-authenticate", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))

		assert.Equal(t, 401, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("unknown error becomes opaque internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, errors.New("pq: connection refused"))

		assert.Equal(t, 500, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "internal_error", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("wrapped domain error unwrapped", func(t *testing.T) {
		rec := httptest.NewRecorder()
		wrapped := errors.Join(dErrors.New(dErrors.CodeNotFound, "backend not found"), errors.New("context"))
		WriteError(rec, wrapped)

		assert.Equal(t, 404, rec.Code)
	})
}
