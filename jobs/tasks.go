package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskVarianceWarmup precomputes reconciliation summaries per branch.
	TaskVarianceWarmup = "variance:warmup"
)

// VarianceWarmupPayload scopes a warmup run. BranchID zero means all
// active branches.
type VarianceWarmupPayload struct {
	BranchID int64 `json:"branch_id"`
}

// NewVarianceWarmupTask constructs an Asynq task.
func NewVarianceWarmupTask(payload VarianceWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVarianceWarmup, data), nil
}
