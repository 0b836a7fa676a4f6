package http

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type contextKey string

const clientIPContextKey contextKey = "client_ip"

// ExtractClientIP returns the client address for the request, or "" if none
// of the candidates parse as an IP. Candidates are checked in order: the first
// X-Forwarded-For entry, X-Real-IP, then the RemoteAddr host.
func ExtractClientIP(r *http.Request) string {
	var candidates []string

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		candidates = append(candidates, first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		candidates = append(candidates, xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	candidates = append(candidates, host)

	for _, c := range candidates {
		addr, err := netip.ParseAddr(strings.Trim(strings.TrimSpace(c), "[]"))
		if err == nil {
			return addr.Unmap().String()
		}
	}
	return ""
}

// ClientIPFromContext extracts the client IP from the request context.
// This should be called from handlers wrapped by ClientIPMiddleware.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}

// ClientIPMiddleware stores the client IP in the request context, where
// session creation picks it up for audit metadata.
func ClientIPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ExtractClientIP(r)
			ctx := context.WithValue(r.Context(), clientIPContextKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
