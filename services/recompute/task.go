package recompute

import (
	"context"
	"encoding/json"
	"time"

	"creator-engine/pkg/errutil"
	"creator-engine/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type creatorPayload struct {
	CreatorID string `json:"creator_id"`
	JobID     string `json:"job_id"`
}

type allPayload struct {
	JobID string `json:"job_id"`
}

// EnqueueCreator records a job row and hands a single-creator recomputation
// to the worker pool.
func (s *Service) EnqueueCreator(ctx context.Context, creatorID string) (string, error) {
	if s.asynq == nil {
		return "", errutil.Internal("task queue not configured", nil)
	}

	job := Job{
		ID:        s.node.Generate().String(),
		TaskType:  taskname.RecomputeCreator,
		CreatorID: creatorID,
		Status:    JobPending,
	}
	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		return "", err
	}

	payload, _ := json.Marshal(creatorPayload{CreatorID: creatorID, JobID: job.ID})
	if _, err := s.asynq.Enqueue(
		asynq.NewTask(taskname.RecomputeCreator, payload),
		asynq.Queue("recompute"),
	); err != nil {
		s.db.Model(&job).Update("status", JobFailed)
		return "", err
	}

	zap.L().Info("enqueued creator recomputation",
		zap.String("creator_id", creatorID),
		zap.String("job_id", job.ID),
	)
	return job.ID, nil
}

// EnqueueAll records a job row and hands a full sweep to the worker pool.
func (s *Service) EnqueueAll(ctx context.Context) (string, error) {
	if s.asynq == nil {
		return "", errutil.Internal("task queue not configured", nil)
	}

	job := Job{
		ID:       s.node.Generate().String(),
		TaskType: taskname.RecomputeAll,
		Status:   JobPending,
	}
	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		return "", err
	}

	payload, _ := json.Marshal(allPayload{JobID: job.ID})
	if _, err := s.asynq.Enqueue(
		asynq.NewTask(taskname.RecomputeAll, payload),
		asynq.Queue("recompute"),
	); err != nil {
		s.db.Model(&job).Update("status", JobFailed)
		return "", err
	}

	zap.L().Info("enqueued full recomputation", zap.String("job_id", job.ID))
	return job.ID, nil
}

// HandleRecomputeCreatorTask is the asynq worker entry for a single creator.
func (s *Service) HandleRecomputeCreatorTask(ctx context.Context, t *asynq.Task) error {
	var payload creatorPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("invalid recompute payload", zap.Error(err))
		return err
	}

	s.markRunning(ctx, payload.JobID)

	if err := s.RecomputeCreator(ctx, payload.CreatorID); err != nil {
		s.markFinished(ctx, payload.JobID, JobFailed, nil, err)
		return err
	}

	s.markFinished(ctx, payload.JobID, JobCompleted, &BatchResult{Processed: 1, Succeeded: 1}, nil)
	return nil
}

// HandleRecomputeAllTask is the asynq worker entry for a full sweep.
func (s *Service) HandleRecomputeAllTask(ctx context.Context, t *asynq.Task) error {
	var payload allPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("invalid recompute payload", zap.Error(err))
		return err
	}

	s.markRunning(ctx, payload.JobID)

	result, err := s.RunForAll(ctx)
	if err != nil {
		s.markFinished(ctx, payload.JobID, JobFailed, result, err)
		return err
	}

	s.markFinished(ctx, payload.JobID, JobCompleted, result, nil)
	return nil
}

func (s *Service) markRunning(ctx context.Context, jobID string) {
	if jobID == "" {
		return
	}
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", jobID).
		Updates(map[string]any{"status": JobRunning, "started_at": now}).Error; err != nil {
		zap.L().Warn("failed to mark job running", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (s *Service) markFinished(ctx context.Context, jobID, status string, result *BatchResult, runErr error) {
	if jobID == "" {
		return
	}

	now := time.Now()
	values := map[string]any{"status": status, "completed_at": now}
	if result != nil {
		values["processed"] = result.Processed
		values["succeeded"] = result.Succeeded
		values["failed"] = result.Failed
	}
	if runErr != nil {
		values["last_error"] = runErr.Error()
	}

	if err := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", jobID).
		Updates(values).Error; err != nil {
		zap.L().Warn("failed to mark job finished", zap.String("job_id", jobID), zap.Error(err))
	}
}
