package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/tokobaju-api/internal/common"
)

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler enforces rate limits before delegating to the next handler.
// Backend failures fail open and are reported through OnError.
type Handler struct {
	Limiter Backend
	Config  Config
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := h.Config.Key(r)
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), key, h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(h.Config.Max, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := max(int(time.Until(resetAt).Seconds()), 0)
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ByIP keys requests by client address under the given scope.
func ByIP(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		return scope + ":ip:" + common.ClientIP(r)
	}
}

// ByUser keys authenticated requests by user id and falls back to the client address.
func ByUser(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		if id, ok := common.UserID(r.Context()); ok && id != "" {
			return scope + ":user:" + id
		}
		return scope + ":ip:" + common.ClientIP(r)
	}
}
