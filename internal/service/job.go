// Package service exposes the pipeline to callers: job submission, status,
// results and cancellation.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
	"github.com/nclamvn/prismy-ultimate/internal/store"
	"github.com/nclamvn/prismy-ultimate/internal/store/model"
)

// Enqueuer is the pipeline's queue surface as the service needs it.
type Enqueuer interface {
	EnqueueExtract(ctx context.Context, jobID uuid.UUID) (int64, error)
	CancelTask(ctx context.Context, taskRef int64) error
}

type PipelineService struct {
	store store.Store
	queue Enqueuer
	log   *zap.SugaredLogger
}

func NewPipelineService(s store.Store, queue Enqueuer) *PipelineService {
	return &PipelineService{
		store: s,
		queue: queue,
		log:   zap.S().Named("service"),
	}
}

type CreateJobRequest struct {
	FilePath       string
	SourceLanguage string
	TargetLanguage string
	Tier           api.Tier
}

// CreateJob registers a job and enqueues its first stage. The returned job is
// PENDING; everything after that happens on the pipeline queues.
func (s *PipelineService) CreateJob(ctx context.Context, request CreateJobRequest) (*model.Job, error) {
	if request.FilePath == "" {
		return nil, NewErrInvalidRequest("file path is required")
	}
	if request.TargetLanguage == "" {
		return nil, NewErrInvalidRequest("target language is required")
	}
	tier := request.Tier
	if tier == "" {
		tier = api.TierStandard
	}
	if !tier.Valid() {
		return nil, NewErrInvalidRequest("unknown tier " + string(request.Tier))
	}

	job, err := s.store.Job().Create(ctx, &model.Job{
		FilePath:       request.FilePath,
		SourceLanguage: request.SourceLanguage,
		TargetLanguage: request.TargetLanguage,
		Tier:           string(tier),
	})
	if err != nil {
		return nil, err
	}

	taskRef, err := s.queue.EnqueueExtract(ctx, job.ID)
	if err != nil {
		msg := "failed to enqueue extraction: " + err.Error()
		if _, failErr := s.store.Job().Transition(ctx, job.ID, model.JobStatusFailed, store.JobUpdate{Error: &msg}); failErr != nil {
			s.log.Warnw("failed to mark unenqueued job as failed", "jobID", job.ID, "error", failErr)
		}
		return nil, err
	}
	job, err = s.store.Job().Update(ctx, job.ID, store.JobUpdate{PipelineTaskRef: &taskRef})
	if err != nil {
		return nil, err
	}

	s.log.Infow("job created", "jobID", job.ID, "tier", tier, "targetLanguage", request.TargetLanguage)
	return job, nil
}

func (s *PipelineService) GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}

// GetResult returns the assembled output of a completed job.
func (s *PipelineService) GetResult(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	result, err := s.store.Result().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	return result, nil
}

func (s *PipelineService) ListJobs(ctx context.Context, filter *store.JobQueryFilter) (model.JobList, error) {
	return s.store.Job().List(ctx, filter)
}

// CancelJob moves the job to CANCELLED and cancels its in-flight queue
// message. The status transition is the durable part; a stage that is already
// running observes it at its next checkpoint.
func (s *PipelineService) CancelJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, NewErrJobFinished(id, string(job.Status))
	}

	job, err = s.store.Job().Transition(ctx, id, model.JobStatusCancelled, store.JobUpdate{})
	if err != nil {
		return nil, err
	}

	if job.PipelineTaskRef != nil {
		if err := s.queue.CancelTask(ctx, *job.PipelineTaskRef); err != nil {
			s.log.Warnw("failed to cancel queue task", "jobID", id, "taskRef", *job.PipelineTaskRef, "error", err)
		}
	}

	s.log.Infow("job cancelled", "jobID", id)
	return job, nil
}
