package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/noah-isme/tokobaju-api/internal/common"
)

// Probe checks a single dependency within Timeout.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingProbe wraps a Pinger as a probe.
func PingProbe(name string, p Pinger, timeout time.Duration) Probe {
	return Probe{Name: name, Timeout: timeout, Check: p.Ping}
}

// Handler exposes liveness and readiness endpoints.
type Handler struct {
	Probes   []Probe
	draining atomic.Bool
}

// Drain flips readiness to failing so load balancers stop routing before shutdown.
func (h *Handler) Drain() { h.draining.Store(true) }

// Live reports the process is up.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready runs every probe and answers 503 when any fails or the server is draining.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.draining.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	status := make(map[string]string, len(h.Probes)+1)
	code := http.StatusOK
	for _, p := range h.Probes {
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = 500 * time.Millisecond
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		err := p.Check(ctx)
		cancel()
		if err != nil {
			status[p.Name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[p.Name] = "ok"
	}
	status["status"] = "ok"
	if code != http.StatusOK {
		status["status"] = "degraded"
	}
	common.JSON(w, code, status)
}
