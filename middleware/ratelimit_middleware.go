package middleware

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/phantask/auth-service/services"
	"github.com/phantask/auth-service/services/ratelimit"
	"github.com/phantask/auth-service/utils"
	"go.uber.org/zap"
)

// LoginThrottle limits login attempts per client IP
type LoginThrottle struct {
	limiter ratelimit.Limiter
	limit   int
	window  time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewLoginThrottle creates a LoginThrottle allowing limit attempts per window
func NewLoginThrottle(limiter ratelimit.Limiter, limit int, window time.Duration, logger *zap.Logger) *LoginThrottle {
	return &LoginThrottle{
		limiter: limiter,
		limit:   limit,
		window:  window,
		now:     time.Now,
		logger:  logger,
	}
}

// Limit rejects requests over the per-IP budget with 429. A limiter that is
// out of capacity denies; any other limiter error fails open.
func (t *LoginThrottle) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t.limiter == nil || t.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := "ip:" + clientIP(r)

		decision, err := t.limiter.Allow(ctx, key, t.limit, t.window)
		if err != nil {
			if errors.Is(err, ratelimit.ErrCapacityExceeded) {
				t.logger.Warn("login limiter full, denying attempt",
					zap.String("request_id", GetRequestIDFromContext(ctx)),
					zap.String("key", key))
				t.deny(w, t.window)
				return
			}
			t.logger.Warn("login limiter unavailable",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		writeRateLimitHeaders(w, decision)
		if !decision.Allowed {
			t.logger.Info("login attempts throttled",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.String("key", key))
			t.deny(w, decision.RetryAfter(t.now()))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (t *LoginThrottle) deny(w http.ResponseWriter, retryAfter time.Duration) {
	if err := utils.WriteTooManyRequests(w, services.ErrTooManyAttempts.Code, services.ErrTooManyAttempts.Message, retryAfter); err != nil {
		t.logger.Error("failed to write response", zap.Error(err))
	}
}

func writeRateLimitHeaders(w http.ResponseWriter, decision ratelimit.Decision) {
	h := w.Header()
	if decision.Limit > 0 {
		h.Set("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		h.Set("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		h.Set("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	}
}

// clientIP returns the host part of RemoteAddr, which TrustedRealIP may have rewritten
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
