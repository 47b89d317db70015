package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type ipKey struct{}

// RealIP resolves the client address. When header names a trusted proxy
// header its first value wins; otherwise RemoteAddr is used. An empty
// header means no proxy is trusted and spoofable headers are ignored.
func RealIP(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ""
			if header != "" {
				if value := r.Header.Get(header); value != "" {
					// X-Forwarded-For may carry a chain; the client is first.
					ip = strings.TrimSpace(strings.Split(value, ",")[0])
				}
			}
			if ip == "" {
				if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
					ip = host
				} else {
					ip = r.RemoteAddr
				}
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ipKey{}, ip)))
		})
	}
}

// ClientIP returns the resolved client address for the request.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ipKey{}).(string); ok {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
