package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/odyssey-pos/internal/backoffice"
	"github.com/odyssey-erp/odyssey-pos/internal/directory"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

type fakeWarmer struct {
	warmed, loaded int
	err            error
}

func (f *fakeWarmer) refs() directory.References {
	return directory.References{
		PaymentMethods: []backoffice.PaymentMethod{{ID: "1", Code: "EF", Label: "Efectivo"}},
		Currencies:     []backoffice.Currency{{ID: "1", Code: "PYG"}, {ID: "2", Code: "USD"}},
	}
}

func (f *fakeWarmer) Warm(context.Context) (directory.References, error) {
	f.warmed++
	return f.refs(), f.err
}

func (f *fakeWarmer) LoadCheckoutReferences(context.Context) (directory.References, error) {
	f.loaded++
	return f.refs(), f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDirectoryWarmupJobModes(t *testing.T) {
	warmer := &fakeWarmer{}
	job := NewDirectoryWarmupJob(warmer, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewDirectoryWarmupTask(DirectoryWarmupPayload{})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if warmer.loaded != 1 || warmer.warmed != 0 {
		t.Fatalf("expected a plain load, got loaded=%d warmed=%d", warmer.loaded, warmer.warmed)
	}

	task, err = NewDirectoryWarmupTask(DirectoryWarmupPayload{Invalidate: true, Reason: "test"})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if warmer.warmed != 1 {
		t.Fatalf("expected an invalidating warm, got warmed=%d", warmer.warmed)
	}
}

func TestDirectoryWarmupJobErrors(t *testing.T) {
	boom := errors.New("backoffice down")
	job := NewDirectoryWarmupJob(&fakeWarmer{err: boom}, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, _ := NewDirectoryWarmupTask(DirectoryWarmupPayload{})
	if err := job.Handle(context.Background(), task); !errors.Is(err, boom) {
		t.Fatalf("expected backoffice error, got %v", err)
	}

	bad := asynq.NewTask(TaskDirectoryWarmup, []byte("{"))
	if err := job.Handle(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for malformed payload, got %v", err)
	}

	var unset *DirectoryWarmupJob
	if err := unset.Handle(context.Background(), task); err == nil {
		t.Fatal("expected error from unconfigured job")
	}
}

type fakeEnqueuer struct {
	got []DirectoryWarmupPayload
	err error
}

func (f *fakeEnqueuer) EnqueueDirectoryWarmup(_ context.Context, p DirectoryWarmupPayload) (*asynq.TaskInfo, error) {
	f.got = append(f.got, p)
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: "t1", Queue: QueueDefault}, nil
}

func TestHandlerRefreshDirectory(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "queued", status: http.StatusAccepted},
		{name: "already queued", err: asynq.ErrDuplicateTask, status: http.StatusAccepted},
		{name: "redis down", err: errors.New("dial tcp"), status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enq := &fakeEnqueuer{err: tt.err}
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(nil, enq, quietLogger()).MountRoutes)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/directory/refresh", nil))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if len(enq.got) != 1 || !enq.got[0].Invalidate {
				t.Fatalf("expected one invalidating enqueue, got %+v", enq.got)
			}
		})
	}
}

func TestHandlerHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil, quietLogger()).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
