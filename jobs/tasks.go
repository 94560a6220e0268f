package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDirectoryWarmup reloads payment methods and currencies into the
	// directory cache.
	TaskDirectoryWarmup = "directory:warmup"
)

// DirectoryWarmupPayload controls a warmup run. Invalidate bumps the cache
// version first so every cached entry, customers included, is refetched.
type DirectoryWarmupPayload struct {
	Invalidate bool   `json:"invalidate"`
	Reason     string `json:"reason,omitempty"`
}

// NewDirectoryWarmupTask constructs an Asynq task.
func NewDirectoryWarmupTask(payload DirectoryWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDirectoryWarmup, data), nil
}
