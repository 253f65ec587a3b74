package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pkg/api"
)

// RateLimit allows requests per window for each client IP and answers the
// rest with 429. A non-positive requests disables the limit.
func RateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			log.Warn().Str("path", r.URL.Path).Str("remote_addr", r.RemoteAddr).Msg("Rate limit exceeded")
			respondWithError(w, http.StatusTooManyRequests, "Too many requests, try again later", api.ErrTypeRateLimited, nil)
		}),
	)
}
