package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequestCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest("GET", "/api/v1/products", 200, 25*time.Millisecond)
	m.ObserveRequest("GET", "/api/v1/products", 200, 10*time.Millisecond)
	m.ObserveRequest("POST", "/api/v1/carts", 201, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/products", "200")); got != 2 {
		t.Fatalf("expected 2 GET product requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("POST", "/api/v1/carts", "201")); got != 1 {
		t.Fatalf("expected 1 cart create, got %v", got)
	}
}

func TestNilRegistererIsSafe(t *testing.T) {
	m := NewHTTPMetrics(nil)
	m.ObserveRequest("GET", "", 500, time.Millisecond)
	m.IncInflight()
	m.DecInflight()
}

func TestInflightGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.IncInflight()
	m.IncInflight()
	m.DecInflight()

	if got := testutil.ToFloat64(m.inflight); got != 1 {
		t.Fatalf("expected 1 in-flight, got %v", got)
	}
}
