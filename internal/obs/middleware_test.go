package obs_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/noah-isme/tokobaju-api/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("toko", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	req = req.WithContext(obs.WithRoute(req.Context(), "/health/ready"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/health/ready", "204"))
	if total != 1 {
		t.Fatalf("expected counter to be 1, got %v", total)
	}

	samples := testutil.CollectAndCount(metrics.ReqDur)
	if samples == 0 {
		t.Fatalf("expected histogram sample")
	}

	if metrics.InFlight != nil {
		if val := testutil.ToFloat64(metrics.InFlight); val != 0 {
			t.Fatalf("expected no in-flight requests, got %v", val)
		}
	}
}

func TestDomainMetricsRecord(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("tokobaju", registry)

	obs.ObservePromoValidation("valid")
	obs.ObservePromoValidation("valid")
	obs.ObservePromoRedemption("limit_reached")
	obs.ObserveOrderCreated(true, 191_500)

	if got := testutil.ToFloat64(obs.PromoValidationsTotal.WithLabelValues("valid")); got != 2 {
		t.Fatalf("expected 2 validations, got %v", got)
	}
	if got := testutil.ToFloat64(obs.PromoRedemptionsTotal.WithLabelValues("limit_reached")); got != 1 {
		t.Fatalf("expected 1 redemption, got %v", got)
	}
	if got := testutil.ToFloat64(obs.OrdersCreatedTotal.WithLabelValues("applied")); got != 1 {
		t.Fatalf("expected 1 order, got %v", got)
	}
}

func TestTracingMiddlewarePassesThrough(t *testing.T) {
	handler := obs.TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/promos", nil)
	req = req.WithContext(obs.WithRoute(req.Context(), "/api/promos"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected 418 got %d", rr.Code)
	}
}
