package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem rejects replays of write requests carrying the same Idempotency-Key.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

// hashKey scopes the header value to method, path and caller.
func hashKey(r *http.Request, key string) string {
	uid, _ := UserID(r.Context())
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + "|" + uid + "|" + key))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware claims the key before running next. A 5xx response releases the
// claim so the client may retry with the same key.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		key := hashKey(r, header)
		ok, err := i.R.SetNX(r.Context(), key, "claimed", ttl).Result()
		if err != nil {
			JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		// any rejection releases the claim
		if sw.status >= http.StatusBadRequest {
			_ = i.R.Del(context.Background(), key).Err()
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
