package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit limits requests per IP address to the specified number per
// minute using a sliding window. Applied to the credential endpoints
// (login, register, refresh) as a brute-force guard.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}
