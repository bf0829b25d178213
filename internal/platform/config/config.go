// Package config builds runtime configuration from environment variables so
// main stays lean. The backend registry has its own loader in internal/registry;
// only the file path is resolved here.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures gateway-level configuration.
type Server struct {
	Addr string

	// Security gate.
	AllowedIPs     []string // empty means no IP restriction
	AllowedOrigins []string
	MaxRequestSize int64 // bytes

	// Rate limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
	BlockDuration     time.Duration

	// Credentials.
	TokenSecret string
	TokenTTL    time.Duration
	TokenIssuer string
	StaticKeys  []string
	// BackendKey is attached to outbound calls so site collectors can
	// authenticate the gateway.
	BackendKey string
	// DevAllowNoAuth skips the credential gate entirely; only honored when
	// ENVIRONMENT=development.
	DevAllowNoAuth bool

	// Redis, optional. Empty URL selects the in-memory rate-limit store.
	RedisURL string

	// BackendsFile points at the JSON registry of site collectors.
	BackendsFile string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:           getEnv("GATEWAY_ADDR", ":9000"),
		AllowedIPs:     splitList(os.Getenv("ALLOWED_IPS")),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		MaxRequestSize: int64(getEnvInt("MAX_REQUEST_SIZE", 5*1024*1024)),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   time.Duration(getEnvInt("RATE_LIMIT_WINDOW", 60)) * time.Second,
		BlockDuration:     time.Duration(getEnvInt("RATE_LIMIT_BLOCK_SECONDS", 300)) * time.Second,

		TokenSecret: getEnv("TOKEN_SECRET", "dev-secret-change-in-production"),
		TokenTTL:    time.Duration(getEnvInt("TOKEN_TTL_SECONDS", 24*3600)) * time.Second,
		TokenIssuer: getEnv("TOKEN_ISSUER", "attendgate"),
		StaticKeys:  splitList(os.Getenv("API_KEYS")),
		BackendKey:  os.Getenv("BACKEND_API_KEY"),
		DevAllowNoAuth: os.Getenv("ENVIRONMENT") == "development" &&
			os.Getenv("ALLOW_NO_AUTH") == "true",

		RedisURL: os.Getenv("REDIS_URL"),

		BackendsFile: getEnv("BACKENDS_CONFIG", "backends.json"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
