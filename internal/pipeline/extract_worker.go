package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
	"github.com/nclamvn/prismy-ultimate/internal/config"
	"github.com/nclamvn/prismy-ultimate/internal/extraction"
	"github.com/nclamvn/prismy-ultimate/internal/store"
	"github.com/nclamvn/prismy-ultimate/internal/store/model"
	"github.com/nclamvn/prismy-ultimate/pkg/metrics"
)

type ExtractWorker struct {
	river.WorkerDefaults[ExtractArgs]
	store    store.Store
	registry *extraction.Registry
	opts     extraction.Options
	timeout  time.Duration
	log      *zap.SugaredLogger
}

func NewExtractWorker(s store.Store, registry *extraction.Registry, cfg *config.Config) *ExtractWorker {
	return &ExtractWorker{
		store:    s,
		registry: registry,
		opts: extraction.Options{
			BatchSize:     cfg.Pipeline.BatchSize,
			MinTextLength: cfg.Pipeline.MinTextLength,
		},
		timeout: cfg.Pipeline.ExtractTimeout,
		log:     zap.S().Named("extract_worker"),
	}
}

func (w *ExtractWorker) Timeout(job *river.Job[ExtractArgs]) time.Duration {
	return w.timeout
}

func (w *ExtractWorker) Work(ctx context.Context, job *river.Job[ExtractArgs]) error {
	// Check for cancellation before starting
	if err := ctx.Err(); err != nil {
		return err
	}
	jobID := job.Args.JobID

	rec, skip, err := beginStage(ctx, w.store, jobID, model.JobStatusExtracting, progressExtracting)
	if err != nil || skip {
		return err
	}
	start := time.Now()

	fileType, err := extraction.Detect(rec.FilePath)
	if err != nil {
		return failStage(ctx, w.store, jobID, "extract", err)
	}
	extractor, err := w.registry.ForType(fileType)
	if err != nil {
		return failStage(ctx, w.store, jobID, "extract", err)
	}
	ft := string(fileType)
	if _, err := w.store.Job().Update(ctx, jobID, store.JobUpdate{FileType: &ft}); err != nil {
		return err
	}

	// A retried stage starts over; drop any batches from the failed attempt.
	if err := w.store.Batch().DeleteForJob(ctx, jobID); err != nil {
		return err
	}

	emitted := 0
	emit := func(ctx context.Context, batch api.ExtractionBatch) error {
		record := &model.ExtractionBatch{
			JobID:     jobID,
			BatchID:   batch.BatchID,
			PageStart: batch.PageStart,
			PageEnd:   batch.PageEnd,
			Elements:  model.MakeJSONField(batch.Elements),
		}
		if err := w.store.Batch().Create(ctx, record); err != nil {
			return err
		}
		emitted++
		progress := progressExtracting + 5*emitted
		if progress >= progressExtracted {
			progress = progressExtracted - 1
		}
		return w.store.Job().UpdateProgress(ctx, jobID, progress)
	}

	totalPages, err := extractor.Extract(ctx, rec.FilePath, w.opts, emit)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		if isFatalExtraction(err) {
			return failStage(ctx, w.store, jobID, "extract", err)
		}
		return err
	}

	if _, err := w.store.Job().Update(ctx, jobID, store.JobUpdate{TotalPages: &totalPages}); err != nil {
		return err
	}
	if err := w.store.Job().UpdateProgress(ctx, jobID, progressExtracted); err != nil {
		return err
	}
	w.log.Infow("extraction finished", "jobID", jobID, "fileType", ft, "totalPages", totalPages)

	metrics.IncreaseStageCompletedMetric("extract", "success")
	metrics.ObserveStageDurationMetric("extract", time.Since(start))
	return enqueueNext(ctx, w.store, jobID, ChunkArgs{JobID: jobID})
}

func isFatalExtraction(err error) bool {
	var unsupported *extraction.ErrUnsupportedFormat
	var corrupted *extraction.ErrFileCorrupted
	var empty *extraction.ErrEmptyDocument
	return errors.As(err, &unsupported) || errors.As(err, &corrupted) || errors.As(err, &empty)
}
