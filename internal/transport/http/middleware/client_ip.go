package middleware

import (
	"net"
	"net/http"
	"strings"
)

const unknownClientIP = "unknown"

// ClientIP returns the first X-Forwarded-For hop, else the host part of the
// connection's remote address, else "unknown".
func ClientIP(r *http.Request) string {
	if r == nil {
		return unknownClientIP
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if remote == "" {
		return unknownClientIP
	}
	return remote
}
