package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSessionCleanup prunes expired login session records.
	TaskTypeSessionCleanup = "sessions:cleanup"
	// TaskTypeUsageRollup aggregates per-tenant usage counters.
	TaskTypeUsageRollup = "usage:rollup"
)

// SessionCleanupPayload bounds the cleanup run.
type SessionCleanupPayload struct {
	Before time.Time `json:"before"`
}

// NewSessionCleanupTask constructs an Asynq task.
func NewSessionCleanupTask(payload SessionCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSessionCleanup, data), nil
}

// UsageRollupPayload names the day to aggregate. Zero value means yesterday.
type UsageRollupPayload struct {
	Day time.Time `json:"day"`
}

// NewUsageRollupTask constructs an Asynq task.
func NewUsageRollupTask(payload UsageRollupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeUsageRollup, data), nil
}
