package ratelimit

import (
	"math"
	"net/http"
	"strconv"
)

// DefaultRetryAfterSeconds is the Retry-After value sent with a 429.
const DefaultRetryAfterSeconds = 1

// Middleware rejects requests over the account's limit with 429 Too Many
// Requests. Requests for which accountOf returns "" pass through untouched;
// authentication decides what happens to them.
func Middleware(limiter *RateLimiter, accountOf func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := accountOf(r)
			if account == "" {
				next.ServeHTTP(w, r)
				return
			}

			bucket := limiter.GetLimiter(account)
			if !bucket.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(DefaultRetryAfterSeconds))
				w.Header().Set("X-RateLimit-Remaining", "0")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			remaining := int(math.Max(0, bucket.Tokens()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}
