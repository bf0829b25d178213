// Package metadata resolves client identity metadata from inbound requests.
package metadata

import (
	"net/http"
	"strings"

	"attendgate/pkg/requestcontext"
)

// proxyHeaders is the priority order for resolving the original client address
// behind tunnels, CDNs, and reverse proxies.
var proxyHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"X-Original-Forwarded-For",
	"CF-Connecting-IP",
	"True-Client-IP",
}

// ClientMetadata extracts the client address and User-Agent from the request
// and adds them to the context. Apply early in the chain; every downstream
// check keys on the resolved address.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest resolves the real client address. Forwarding headers are
// consulted in priority order; a comma-separated list yields its first entry.
// Falls back to the transport peer address with the port stripped.
func ClientIPFromRequest(r *http.Request) string {
	for _, h := range proxyHeaders {
		value := r.Header.Get(h)
		if value == "" {
			continue
		}
		if idx := strings.Index(value, ","); idx != -1 {
			value = value[:idx]
		}
		ip := strings.TrimSpace(value)
		if ip != "" && ip != "unknown" {
			return ip
		}
	}

	// RemoteAddr is "ip:port" for IPv4 and "[::1]:port" for IPv6.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
