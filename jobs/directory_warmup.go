package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/directory"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const jobDirectoryWarmup = "directory_warmup"

// DirectoryWarmer is implemented by directory.Service.
type DirectoryWarmer interface {
	Warm(ctx context.Context) (directory.References, error)
	LoadCheckoutReferences(ctx context.Context) (directory.References, error)
}

// DirectoryWarmupJob pre-populates the directory cache so the first checkout
// after a deploy or a catalogue change does not wait on the backoffice.
type DirectoryWarmupJob struct {
	Directory DirectoryWarmer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Timeout   time.Duration
}

// NewDirectoryWarmupJob builds the warmup handler.
func NewDirectoryWarmupJob(dir DirectoryWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *DirectoryWarmupJob {
	return &DirectoryWarmupJob{Directory: dir, Logger: logger, Metrics: metrics, Timeout: 30 * time.Second}
}

// Handle processes directory warmup tasks.
func (j *DirectoryWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Directory == nil {
		return errors.New("directory warmup: handler not configured")
	}
	var payload DirectoryWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(jobDirectoryWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Bool("invalidate", payload.Invalidate), slog.String("reason", payload.Reason))
	start := time.Now()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	load := j.Directory.LoadCheckoutReferences
	if payload.Invalidate {
		load = j.Directory.Warm
	}
	refs, err := load(ctx)
	if err != nil {
		resultErr = err
		logger.Error("directory warmup failed", slog.Any("error", err))
		return resultErr
	}

	j.metrics().AddWarmed("payment_methods", len(refs.PaymentMethods))
	j.metrics().AddWarmed("currencies", len(refs.Currencies))
	logger.Info("completed directory warmup",
		slog.Int("payment_methods", len(refs.PaymentMethods)),
		slog.Int("currencies", len(refs.Currencies)),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *DirectoryWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDirectoryWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDirectoryWarmup))
}

func (j *DirectoryWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
