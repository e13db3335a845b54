package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"

	"loralinka/internal/ratelimit"

	"go.uber.org/zap"
)

type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
	logr    *zap.Logger
}

func NewRateLimitMiddleware(limiter *ratelimit.Limiter, logr *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, logr: logr}
}

// Limit counts the request against the (api key, client ip) pair. It must run after
// APIKey. When the store fails the request is let through and the error logged.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("api_key:%s:ip:%s", APIKeyFromContext(r.Context()), clientIP(r))

		res, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			m.logr.Error("rate limiter unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(res.Rule.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

		if !res.Allowed {
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			m.logr.Warn("rate limit exceeded",
				zap.String("ip", clientIP(r)),
				zap.String("limit", res.Rule.String()))
			h.Set("Content-Type", "text/plain; charset=utf-8")
			h.Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = fmt.Fprintf(w, "Rate limit exceeded: %s", res.Rule)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr. Behind a trusted proxy chi's RealIP
// has already replaced RemoteAddr with the forwarded address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
