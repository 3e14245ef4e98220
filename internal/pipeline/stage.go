package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/nclamvn/prismy-ultimate/internal/store"
	"github.com/nclamvn/prismy-ultimate/internal/store/model"
	"github.com/nclamvn/prismy-ultimate/pkg/metrics"
)

// Progress bands per stage. Stages only ever advance progress; the store
// drops writes that would move it backwards.
const (
	progressExtracting     = 5
	progressExtracted      = 30
	progressChunked        = 45
	progressTranslated     = 90
	progressReconstructing = 90
	progressCompleted      = 100
)

// beginStage fetches the job and moves it into the stage status. A skip
// result means the delivery is a duplicate or the job already reached a
// terminal state; the worker must acknowledge without doing any work.
func beginStage(ctx context.Context, s store.Store, jobID uuid.UUID, stage model.JobStatus, progress int) (*model.Job, bool, error) {
	log := zap.S().Named("pipeline")

	job, err := s.Job().Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, false, river.JobCancel(err)
		}
		return nil, false, err
	}

	if job.Status.IsTerminal() || job.Status.Past(stage) {
		log.Infow("skipping stage, job moved on", "jobID", jobID, "stage", stage, "status", job.Status)
		return nil, true, nil
	}
	if job.Status == stage {
		// A retried delivery of the stage the job is already in.
		return job, false, nil
	}

	job, err = s.Job().Transition(ctx, jobID, stage, store.JobUpdate{Progress: &progress})
	if err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			log.Warnw("skipping stage, transition rejected", "jobID", jobID, "stage", stage, "error", err)
			return nil, true, nil
		}
		return nil, false, err
	}
	return job, false, nil
}

// failStage marks the job FAILED and cancels the queue message so river never
// retries a permanently broken job.
func failStage(ctx context.Context, s store.Store, jobID uuid.UUID, stage string, stageErr error) error {
	msg := stageErr.Error()
	if _, err := s.Job().Transition(ctx, jobID, model.JobStatusFailed, store.JobUpdate{Error: &msg}); err != nil {
		zap.S().Named("pipeline").Warnw("failed to mark job as failed", "jobID", jobID, "error", err)
	}
	metrics.IncreaseStageCompletedMetric(stage, "failure")
	return river.JobCancel(stageErr)
}

// enqueueNext inserts the next stage's message and records its river job id
// on the job so a cancel request can reach the in-flight stage.
func enqueueNext(ctx context.Context, s store.Store, jobID uuid.UUID, args river.JobArgs) error {
	client := river.ClientFromContext[pgx.Tx](ctx)
	result, err := client.Insert(ctx, args, nil)
	if err != nil {
		return err
	}
	_, err = s.Job().Update(ctx, jobID, store.JobUpdate{PipelineTaskRef: &result.Job.ID})
	return err
}
