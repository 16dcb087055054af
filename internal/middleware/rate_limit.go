package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
	"github.com/go-chi/httprate"
)

// DefaultLoginRequestsPerMinute bounds raw request volume on the login route,
// independent of the failed-attempt lockout
const DefaultLoginRequestsPerMinute = 20

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// The client IP is resolved the same way as the login lockout identity.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	limit := config.RequestsPerMinute
	if limit <= 0 {
		limit = DefaultLoginRequestsPerMinute
	}

	return httprate.Limit(
		limit,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		}),
	)
}
