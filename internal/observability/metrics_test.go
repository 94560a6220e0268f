package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesSubmissions(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveSubmission("create", "success")
	metrics.ObserveSubmission("append", "stock_insufficient")
	metrics.ObserveSubmission("append", "stock_insufficient")

	body := scrape(t, metrics)
	if !strings.Contains(body, `odyssey_pos_submissions_total{mode="create",outcome="success"} 1`) {
		t.Fatalf("expected create success sample, got: %s", body)
	}
	if !strings.Contains(body, `odyssey_pos_submissions_total{mode="append",outcome="stock_insufficient"} 2`) {
		t.Fatalf("expected append failure sample, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, "odyssey_pos_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "odyssey_pos_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestOpenSessionsGauge(t *testing.T) {
	metrics := NewMetrics()
	open := 3
	metrics.TrackOpenSessions(func() int { return open })
	metrics.TrackOpenSessions(func() int { return 99 })

	if body := scrape(t, metrics); !strings.Contains(body, "odyssey_pos_open_sessions 3") {
		t.Fatalf("expected gauge sample, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveSubmission("create", "success")
	metrics.TrackOpenSessions(func() int { return 1 })

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}
