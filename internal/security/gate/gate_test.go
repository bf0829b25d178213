package gate

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	ratelimit "attendgate/internal/ratelimit/service"
	"attendgate/internal/ratelimit/store/bucket"
	"attendgate/internal/security"
	"attendgate/internal/security/audit"
	"attendgate/internal/security/ipfilter"
	"attendgate/pkg/platform/middleware/metadata"
)

const (
	gateLimit   = 3
	gateWindow  = time.Minute
	gateBlock   = 5 * time.Minute
	maxBodySize = 128
)

type GateSuite struct {
	suite.Suite
	recorder *audit.Recorder
	handler  http.Handler
	seenBody string
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.buildGate(nil)
}

func (s *GateSuite) buildGate(allowedIPs []string) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.recorder = audit.New(logger)
	s.seenBody = ""

	store := bucket.NewInMemoryBucketStore()
	limiter, err := ratelimit.New(store, gateLimit, gateWindow, gateBlock, ratelimit.WithLogger(logger))
	s.Require().NoError(err)

	g := New(ipfilter.New(allowedIPs), limiter, maxBodySize, s.recorder, logger)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			body, _ := io.ReadAll(r.Body)
			s.seenBody = string(body)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.handler = metadata.ClientMetadata(g.Middleware(inner))
}

func (s *GateSuite) do(method, path, ip, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Forwarded-For", ip)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *GateSuite) TestSecurityHeadersAlwaysSet() {
	for _, path := range []string{"/devices/all", "/health"} {
		rec := s.do(http.MethodGet, path, "203.0.113.9", "")
		s.Equal("nosniff", rec.Header().Get("X-Content-Type-Options"), path)
		s.Equal("SAMEORIGIN", rec.Header().Get("X-Frame-Options"), path)
		s.Equal("no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"), path)
	}
}

func (s *GateSuite) TestProcessTimeHeader() {
	rec := s.do(http.MethodGet, "/devices/all", "203.0.113.9", "")
	s.Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get("X-Process-Time"))
}

func (s *GateSuite) TestIPAllowList() {
	s.buildGate([]string{"10.0.0.0/8"})

	rec := s.do(http.MethodGet, "/devices/all", "10.1.2.3", "")
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/devices/all", "203.0.113.9", "")
	s.Equal(http.StatusForbidden, rec.Code)

	events := s.recorder.Recent()
	s.Require().NotEmpty(events)
	s.Equal(security.EventIPBlocked, events[0].Type)
	s.Equal(security.SeverityHigh, events[0].Severity)
}

func (s *GateSuite) TestExemptPathsBypassChecks() {
	s.buildGate([]string{"10.0.0.0/8"})

	rec := s.do(http.MethodGet, "/health", "203.0.113.9", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func (s *GateSuite) TestRateLimiting() {
	for i := 0; i < gateLimit; i++ {
		rec := s.do(http.MethodGet, "/devices/all", "203.0.113.9", "")
		s.Equal(http.StatusOK, rec.Code)
		s.NotEmpty(rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := s.do(http.MethodGet, "/devices/all", "203.0.113.9", "")
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("0", rec.Header().Get("X-RateLimit-Remaining"))
	s.NotEmpty(rec.Header().Get("Retry-After"))

	// Other clients are unaffected.
	rec = s.do(http.MethodGet, "/devices/all", "198.51.100.7", "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *GateSuite) TestPayloadTooLarge() {
	body := strings.Repeat("x", maxBodySize+1)
	rec := s.do(http.MethodPost, "/devices/all", "203.0.113.9", body)
	s.Equal(http.StatusRequestEntityTooLarge, rec.Code)
}

func (s *GateSuite) TestMaliciousBodyRejected() {
	rec := s.do(http.MethodPost, "/devices/all", "203.0.113.9", `{"q":"<script>alert(1)</script>"}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	events := s.recorder.Recent()
	s.Require().NotEmpty(events)
	s.Equal(security.EventMaliciousRequest, events[0].Type)
	s.Equal(security.SeverityHigh, events[0].Severity)
}

func (s *GateSuite) TestSafeBodyReachesHandlerIntact() {
	payload := `{"start_date":"2025-06-01"}`
	rec := s.do(http.MethodPost, "/devices/all", "203.0.113.9", payload)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(payload, s.seenBody)
}

func (s *GateSuite) TestGetBodiesAreNotScanned() {
	rec := s.do(http.MethodGet, "/devices/all", "203.0.113.9", "")
	s.Equal(http.StatusOK, rec.Code)
}
