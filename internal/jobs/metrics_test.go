package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	if err := m.Track("directory_warmup").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := m.Track("directory_warmup").End(boom); !errors.Is(err, boom) {
		t.Fatalf("expected the job error back, got %v", err)
	}

	if got := testutil.ToFloat64(m.runs.WithLabelValues("directory_warmup", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("directory_warmup")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestAddWarmed(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddWarmed("payment_methods", 4)
	m.AddWarmed("payment_methods", 0)

	if got := testutil.ToFloat64(m.warmed.WithLabelValues("payment_methods")); got != 4 {
		t.Fatalf("expected 4 warmed entries, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.AddWarmed("currencies", 2)
	if err := nilMetrics.Track("x").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
