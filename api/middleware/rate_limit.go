package middleware

import (
	"net/http"
	"strconv"

	"github.com/angelmondragon/personacast-backend/api/responses"
	"github.com/angelmondragon/personacast-backend/internal/ratelimit"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/personacast-backend/pkg/errors"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
)

// Admitter is the slice of ratelimit.Limiter the HTTP layer depends on.
type Admitter interface {
	Admit(class enums.OperationClass, userID string) ratelimit.Decision
}

// RateLimit throttles the wrapped route under a single operation class.
// It must run after Auth so the creator id is available.
func RateLimit(limiter Admitter, class enums.OperationClass, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Admit(w, r, limiter, class, logg) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Admit charges one request against class for the caller, sets the quota headers
// and writes a RATE_LIMIT_EXCEEDED envelope on denial. It reports whether the request may proceed.
func Admit(w http.ResponseWriter, r *http.Request, limiter Admitter, class enums.OperationClass, logg *logger.Logger) bool {
	if limiter == nil {
		return true
	}
	decision := limiter.Admit(class, UserIDFromContext(r.Context()))
	writeQuotaHeaders(w, decision)
	if decision.Allowed {
		return true
	}

	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"operation":           string(class),
			"retry_after_seconds": decision.RetryAfterSeconds,
		})
		logg.Warn(ctx, "ratelimit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded").WithDetails(map[string]any{
		"operation":           string(class),
		"retry_after_seconds": decision.RetryAfterSeconds,
	}))
	return false
}

// writeQuotaHeaders reports the reset as seconds until the window ends.
func writeQuotaHeaders(w http.ResponseWriter, decision ratelimit.Decision) {
	if decision.ResetAt.IsZero() {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	h.Set("X-RateLimit-Reset", strconv.Itoa(decision.RetryAfterSeconds))
}
