package api

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bottleservice/bottleservice-server/internal/http/response"
	"github.com/bottleservice/bottleservice-server/internal/ratelimit"
)

// RateLimiter wraps KeyedRateLimiter for API use.
type RateLimiter = ratelimit.KeyedRateLimiter

const rateLimitMessage = "Too many requests. Please try again later."

// NewRateLimiter creates a new rate limiter.
// rate: number of requests allowed per interval
// interval: time period for rate (e.g., time.Minute)
// burst: maximum burst size
func NewRateLimiter(ratePerInterval int, interval time.Duration, burst int) *RateLimiter {
	rps := float64(ratePerInterval) / interval.Seconds()
	return ratelimit.New(rps, burst)
}

// rateLimitByUser limits plain chi routes per signed-in user, falling back
// to the client IP for anonymous requests.
func (s *Server) rateLimitByUser(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := userFromRequest(r)
			if !ok {
				key = getClientIP(r)
			}
			if !limiter.Allow(key) {
				s.logger.Warn("Rate limit exceeded", "key", key, "path", r.URL.Path)
				response.TooManyRequests(w, rateLimitMessage, s.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// humaRateLimit is the huma operation middleware equivalent. The key is the
// user when signed in, otherwise the client IP.
func (s *Server) humaRateLimit(limiter *RateLimiter) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		key, err := GetUserID(ctx.Context())
		if err != nil {
			key = clientIP(ctx.Header("X-Forwarded-For"), ctx.Header("X-Real-IP"), ctx.RemoteAddr())
		}
		if !limiter.Allow(key) {
			s.logger.Warn("Rate limit exceeded", "key", key, "operation", ctx.Operation().OperationID)
			_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, rateLimitMessage)
			return
		}
		next(ctx)
	}
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func getClientIP(r *http.Request) string {
	return clientIP(r.Header.Get("X-Forwarded-For"), r.Header.Get("X-Real-IP"), r.RemoteAddr)
}

func clientIP(xff, xri, remoteAddr string) string {
	// Take first IP in the chain.
	if xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri != "" {
		return xri
	}

	// Fall back to RemoteAddr (strip port).
	ip := remoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}
