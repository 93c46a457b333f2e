package variance

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/helix-dx/helix-erp/internal/jobs"
	"github.com/helix-dx/helix-erp/jobs"
)

// WarmupJob precomputes reconciliation summaries from the job queue.
type WarmupJob struct {
	service  *Service
	branches BranchLister
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// BranchLister yields the branch ids the warmup sweeps over.
type BranchLister interface {
	ActiveBranchIDs(ctx context.Context) ([]int64, error)
}

// NewWarmupJob constructs a job handler.
func NewWarmupJob(service *Service, branches BranchLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *WarmupJob {
	return &WarmupJob{service: service, branches: branches, logger: logger, metrics: metrics}
}

// Handle fulfils the asynq.HandlerFunc contract. A payload naming a branch
// warms that branch only; an empty payload sweeps all active branches.
func (j *WarmupJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track(jobs.TaskVarianceWarmup)
	return tracker.End(j.handle(ctx, task))
}

func (j *WarmupJob) handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.VarianceWarmupPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	ids := []int64{payload.BranchID}
	if payload.BranchID == 0 {
		var err error
		ids, err = j.branches.ActiveBranchIDs(ctx)
		if err != nil {
			return err
		}
	}
	for _, branchID := range ids {
		if err := j.service.Warm(ctx, branchID); err != nil {
			if j.logger != nil {
				j.logger.Error("variance warmup", slog.Int64("branch_id", branchID), slog.Any("error", err))
			}
			return err
		}
	}
	if j.logger != nil {
		j.logger.Info("variance warmup complete", slog.Int("branches", len(ids)))
	}
	return nil
}
