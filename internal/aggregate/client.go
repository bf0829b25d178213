package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"attendgate/internal/platform/metrics"
	"attendgate/internal/registry"
	"attendgate/internal/token"
	"attendgate/pkg/requestcontext"
)

const (
	userAgent = "attendgate/1.0"
	// maxResponseBytes caps upstream bodies; collectors return bounded
	// listings, anything larger is misbehavior.
	maxResponseBytes = 16 << 20
)

// Client performs authenticated outbound calls to site collectors.
type Client struct {
	http       *http.Client
	tokens     *token.Service
	backendKey string
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates an outbound client. tokens mints the per-call capability
// token; backendKey is the shared key collectors accept, may be empty.
func NewClient(tokens *token.Service, backendKey string, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		// Per-call deadlines come from each target's context; the client
		// itself only bounds pathological connections.
		http:       &http.Client{Timeout: 60 * time.Second},
		tokens:     tokens,
		backendKey: backendKey,
		logger:     logger,
		tracer:     otel.Tracer("attendgate/aggregate"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call performs one GET against target and decodes the body into T. Every
// failure mode is classified into a BackendError on the Result; Call never
// returns a Go error, which is what keeps fan-out siblings isolated.
func Call[T any](ctx context.Context, c *Client, target *registry.Target, endpoint string, params url.Values) Result[T] {
	tag := BackendTag{
		BackendName:   target.Name,
		BackendURL:    target.BaseURL,
		PlaceLocation: target.Location,
	}
	result := Result[T]{Backend: tag}

	ctx, span := c.tracer.Start(ctx, "backend.call", trace.WithAttributes(
		attribute.String("backend.name", target.Name),
		attribute.String("backend.endpoint", endpoint),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, target.Timeout)
	defer cancel()

	callURL := target.BaseURL + endpoint
	if len(params) > 0 {
		callURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, callURL, nil)
	if err != nil {
		return fail(ctx, c, span, result, ErrConnectionError, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Gateway-Request", "true")
	req.Header.Set("Content-Type", "application/json")
	if c.backendKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.backendKey)
	}
	if gwToken, err := c.tokens.Issue(token.Claims{Gateway: true, Backend: target.Name}, requestcontext.Now(ctx)); err == nil {
		req.Header.Set("X-Gateway-Token", gwToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	result.ResponseTime = time.Since(start)
	if err != nil {
		code := ErrConnectionError
		if errors.Is(err, context.DeadlineExceeded) {
			code = ErrTimeout
		}
		return fail(ctx, c, span, result, code, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized:
		return fail(ctx, c, span, result, ErrAuthFailed, "authentication failed")
	case resp.StatusCode == http.StatusForbidden:
		return fail(ctx, c, span, result, ErrForbidden, "access denied")
	case resp.StatusCode >= 500:
		return fail(ctx, c, span, result, ErrServerError, fmt.Sprintf("server error %d", resp.StatusCode))
	default:
		return fail(ctx, c, span, result, ErrHTTPError, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fail(ctx, c, span, result, ErrConnectionError, fmt.Sprintf("read body: %v", err))
	}
	if err := json.Unmarshal(body, &result.Value); err != nil {
		return fail(ctx, c, span, result, ErrBadResponse, fmt.Sprintf("unparseable response: %v", err))
	}

	if c.metrics != nil {
		c.metrics.ObserveBackendCall(target.Name, "success", result.ResponseTime)
	}
	span.SetStatus(codes.Ok, "")
	return result
}

// fail classifies one failure, records it, and returns the completed result.
func fail[T any](ctx context.Context, c *Client, span trace.Span, result Result[T], code ErrorCode, msg string) Result[T] {
	result.Err = &BackendError{Code: code, Message: msg, Backend: result.Backend}
	if c.metrics != nil {
		c.metrics.ObserveBackendCall(result.Backend.BackendName, string(code), result.ResponseTime)
	}
	if c.logger != nil {
		c.logger.WarnContext(ctx, "backend call failed",
			"backend", result.Backend.BackendName,
			"error_code", string(code),
			"error", msg,
		)
	}
	span.SetStatus(codes.Error, msg)
	return result
}
