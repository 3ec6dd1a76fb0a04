package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tokobaju-api/internal/health"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func ready(t *testing.T, h *health.Handler) (int, map[string]string) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr.Code, body
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	(&health.Handler{}).Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestReadyWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &health.Handler{Probes: []health.Probe{
		health.PingProbe("db", stubPinger{}, 50*time.Millisecond),
		{Name: "redis", Timeout: 50 * time.Millisecond, Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}}
	code, body := ready(t, h)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["db"])
	require.Equal(t, "ok", body["redis"])
}

func TestReadyFailure(t *testing.T) {
	h := &health.Handler{Probes: []health.Probe{health.PingProbe("db", stubPinger{err: errors.New("db down")}, 0)}}
	code, body := ready(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "db down", body["db"])
	require.Equal(t, "degraded", body["status"])
}

func TestReadyWhileDraining(t *testing.T) {
	h := &health.Handler{Probes: []health.Probe{health.PingProbe("db", stubPinger{}, 0)}}
	code, _ := ready(t, h)
	require.Equal(t, http.StatusOK, code)

	h.Drain()
	code, body := ready(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "draining", body["status"])
}
