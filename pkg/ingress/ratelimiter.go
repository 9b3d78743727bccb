package ingress

import (
	"net/http"

	"github.com/jowpereira/bradax/pkg/api"
	"github.com/jowpereira/bradax/pkg/ratelimit"
)

// RateLimiterMiddleware enforces the per-client-IP bounds (§4.5): an
// over-limit client is rejected with a standard 429 before any handler
// code runs.
func RateLimiterMiddleware(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admitted, release := limiter.Allow(ratelimit.ClientIP(r))
			if !admitted {
				api.WriteTooManyRequests(w, 1)
				return
			}
			defer release()
			next.ServeHTTP(w, r)
		})
	}
}
