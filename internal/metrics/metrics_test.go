package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	m := New()

	m.Observe("create_item", nil, 10*time.Millisecond)
	m.Observe("create_item", nil, 20*time.Millisecond)
	m.Observe("create_item", errors.New("boom"), time.Millisecond)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("create_item", ResultOK)); got != 2 {
		t.Errorf("expected 2 successful operations, got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("create_item", ResultError)); got != 1 {
		t.Errorf("expected 1 failed operation, got %v", got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Errorf("expected 1 histogram series, got %d", got)
	}
}

func TestTrailFailure(t *testing.T) {
	m := New()
	m.TrailFailure()
	m.TrailFailure()

	if got := testutil.ToFloat64(m.trailFailures); got != 2 {
		t.Errorf("expected 2 trail failures, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Observe("x", nil, time.Second)
	m.TrailFailure()
	m.HTTPRequest(http.MethodGet, http.StatusOK)
}

func TestHandler(t *testing.T) {
	m := New()
	m.TrailFailure()
	m.HTTPRequest(http.MethodGet, http.StatusNotFound)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		"assetnexus_trail_record_failures_total 1",
		`assetnexus_http_requests_total{code="404",method="GET"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}
