package http

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadgate/pkg/requestcontext"
)

// RequestContext stamps every request with its id, client address, user
// agent, and arrival time so services downstream never touch *http.Request.
// Freezing the time here keeps one request's timestamps consistent across
// the step history, window checks, and code expiry.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := r.Context()
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithClientIP(ctx, clientIP(r))
		ctx = requestcontext.WithUserAgent(ctx, r.UserAgent())

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP prefers the first X-Forwarded-For hop; the service runs behind a
// trusted proxy that overwrites client-supplied values.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
