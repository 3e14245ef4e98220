package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
	"github.com/nclamvn/prismy-ultimate/internal/chunking"
	"github.com/nclamvn/prismy-ultimate/internal/config"
	"github.com/nclamvn/prismy-ultimate/internal/reconstruction"
	"github.com/nclamvn/prismy-ultimate/internal/store"
	"github.com/nclamvn/prismy-ultimate/internal/store/model"
	"github.com/nclamvn/prismy-ultimate/pkg/metrics"
	"github.com/nclamvn/prismy-ultimate/pkg/objstore"
)

type ReconstructWorker struct {
	river.WorkerDefaults[ReconstructArgs]
	store       store.Store
	objects     objstore.ObjectStore
	chunkSize   int
	overlapSize int
	timeout     time.Duration
	log         *zap.SugaredLogger
}

func NewReconstructWorker(s store.Store, objects objstore.ObjectStore, cfg *config.Config) *ReconstructWorker {
	return &ReconstructWorker{
		store:       s,
		objects:     objects,
		chunkSize:   cfg.Pipeline.ChunkSize,
		overlapSize: cfg.Pipeline.OverlapSize,
		timeout:     cfg.Pipeline.ReconstructTimeout,
		log:         zap.S().Named("reconstruct_worker"),
	}
}

func (w *ReconstructWorker) Timeout(job *river.Job[ReconstructArgs]) time.Duration {
	return w.timeout
}

func (w *ReconstructWorker) Work(ctx context.Context, job *river.Job[ReconstructArgs]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	jobID := job.Args.JobID

	rec, skip, err := beginStage(ctx, w.store, jobID, model.JobStatusReconstructing, progressReconstructing)
	if err != nil || skip {
		return err
	}
	start := time.Now()

	records, err := w.store.Translated().List(ctx, jobID)
	if err != nil {
		return err
	}
	translated := make([]api.TranslatedChunk, 0, len(records))
	for _, record := range records {
		if record.Payload == nil {
			continue
		}
		translated = append(translated, record.Payload.Data)
	}

	chunker := chunking.NewChunker(w.chunkSize, w.overlapSize, rec.SourceLanguage)
	doc, err := reconstruction.NewBuilder(chunker).Build(translated)
	if err != nil {
		var recErr *reconstruction.Error
		if errors.As(err, &recErr) {
			return failStage(ctx, w.store, jobID, "reconstruct", err)
		}
		return err
	}

	key := jobID.String() + ".txt"
	ref, err := w.objects.Put(ctx, key, strings.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return failStage(ctx, w.store, jobID, "reconstruct", reconstruction.NewError("writing output failed: %v", err))
	}

	// Result write and COMPLETED transition commit together: a reader can
	// never observe a completed job without its output.
	txCtx, err := w.store.NewTransactionContext(ctx)
	if err != nil {
		return err
	}
	progress := progressCompleted
	err = func() error {
		if err := w.store.Result().Set(txCtx, &model.Result{
			JobID:        jobID,
			Content:      doc.Content,
			Format:       doc.Format,
			ChunkCount:   doc.ChunkCount,
			SoftFailures: doc.SoftFailures,
		}); err != nil {
			return err
		}
		_, err := w.store.Job().Transition(txCtx, jobID, model.JobStatusCompleted, store.JobUpdate{
			Progress:  &progress,
			OutputRef: &ref,
		})
		return err
	}()
	if err != nil {
		if _, rollbackErr := store.Rollback(txCtx); rollbackErr != nil {
			w.log.Warnw("rollback failed", "jobID", jobID, "error", rollbackErr)
		}
		if errors.Is(err, model.ErrInvalidTransition) {
			// The job was cancelled while we were assembling the output.
			w.log.Infow("dropping output, job no longer reconstructing", "jobID", jobID)
			return nil
		}
		return err
	}
	if _, err := store.Commit(txCtx); err != nil {
		return err
	}
	w.log.Infow("job completed", "jobID", jobID, "chunks", doc.ChunkCount, "softFailures", doc.SoftFailures, "outputRef", ref)

	metrics.IncreaseStageCompletedMetric("reconstruct", "success")
	metrics.ObserveStageDurationMetric("reconstruct", time.Since(start))
	return nil
}
