package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/farmbridge/farmbridge-backend/api/responses"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
)

const (
	defaultRateLimitWindow = time.Minute
	defaultRateLimit       = 120
)

type fixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit applies a per-user fixed window limit backed by redis counters.
// On redis failure the request passes through; throttling is best effort.
func RateLimit(store fixedWindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}

			scope := UserIDFromContext(r.Context())
			if scope == "" {
				scope = r.RemoteAddr
			}

			allowed, _, err := store.FixedWindowAllow(r.Context(), scope, defaultRateLimit, defaultRateLimitWindow)
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "rate limit check failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "request rate exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
