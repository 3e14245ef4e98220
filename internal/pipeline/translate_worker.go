package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
	"github.com/nclamvn/prismy-ultimate/internal/config"
	"github.com/nclamvn/prismy-ultimate/internal/store"
	"github.com/nclamvn/prismy-ultimate/internal/store/model"
	"github.com/nclamvn/prismy-ultimate/internal/translation"
	"github.com/nclamvn/prismy-ultimate/pkg/metrics"
)

type TranslateWorker struct {
	river.WorkerDefaults[TranslateArgs]
	store   store.Store
	manager *translation.Manager
	timeout time.Duration
	log     *zap.SugaredLogger
}

func NewTranslateWorker(s store.Store, manager *translation.Manager, cfg *config.Config) *TranslateWorker {
	return &TranslateWorker{
		store:   s,
		manager: manager,
		timeout: cfg.Pipeline.TranslateTimeout,
		log:     zap.S().Named("translate_worker"),
	}
}

func (w *TranslateWorker) Timeout(job *river.Job[TranslateArgs]) time.Duration {
	return w.timeout
}

func (w *TranslateWorker) Work(ctx context.Context, job *river.Job[TranslateArgs]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	jobID := job.Args.JobID

	rec, skip, err := beginStage(ctx, w.store, jobID, model.JobStatusTranslating, progressChunked)
	if err != nil || skip {
		return err
	}
	start := time.Now()

	records, err := w.store.Chunk().List(ctx, jobID)
	if err != nil {
		return err
	}
	chunks := make([]api.Chunk, 0, len(records))
	for _, record := range records {
		if record.Payload == nil {
			continue
		}
		chunks = append(chunks, record.Payload.Data)
	}

	tier := api.Tier(rec.Tier)
	if !tier.Valid() {
		tier = api.TierStandard
	}

	total := len(chunks)
	var done atomic.Int64
	onChunk := func(translated api.TranslatedChunk) {
		n := done.Add(1)
		progress := progressChunked + int(int64(progressTranslated-progressChunked)*n/int64(total))
		if err := w.store.Job().UpdateProgress(ctx, jobID, progress); err != nil {
			w.log.Warnw("failed to update progress", "jobID", jobID, "error", err)
		}
		outcome := "success"
		if !translated.Succeeded {
			outcome = "failure"
		}
		metrics.IncreaseProviderRequestsMetric(translated.Provider, outcome)
	}

	results, err := w.manager.TranslateChunks(ctx, chunks, rec.SourceLanguage, rec.TargetLanguage, tier, onChunk)
	if err != nil {
		return err
	}

	softFailures := 0
	for i := range results {
		result := results[i]
		if !result.Succeeded {
			softFailures++
			metrics.IncreaseChunkSoftFailuresMetric(string(tier))
		}
		record := &model.TranslatedChunk{
			JobID:   jobID,
			ChunkID: result.ChunkID,
			Payload: model.MakeJSONField(result),
		}
		if err := w.store.Translated().Save(ctx, record); err != nil {
			return err
		}
	}

	if err := w.store.Job().UpdateProgress(ctx, jobID, progressTranslated); err != nil {
		return err
	}
	w.log.Infow("translation finished", "jobID", jobID, "chunks", total, "softFailures", softFailures, "tier", tier)

	metrics.IncreaseStageCompletedMetric("translate", "success")
	metrics.ObserveStageDurationMetric("translate", time.Since(start))
	return enqueueNext(ctx, w.store, jobID, ReconstructArgs{JobID: jobID})
}
