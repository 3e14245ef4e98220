package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
	"github.com/nclamvn/prismy-ultimate/internal/chunking"
	"github.com/nclamvn/prismy-ultimate/internal/config"
	"github.com/nclamvn/prismy-ultimate/internal/store"
	"github.com/nclamvn/prismy-ultimate/internal/store/model"
	"github.com/nclamvn/prismy-ultimate/pkg/metrics"
)

type ChunkWorker struct {
	river.WorkerDefaults[ChunkArgs]
	store       store.Store
	chunkSize   int
	overlapSize int
	timeout     time.Duration
	log         *zap.SugaredLogger
}

func NewChunkWorker(s store.Store, cfg *config.Config) *ChunkWorker {
	return &ChunkWorker{
		store:       s,
		chunkSize:   cfg.Pipeline.ChunkSize,
		overlapSize: cfg.Pipeline.OverlapSize,
		timeout:     cfg.Pipeline.ChunkTimeout,
		log:         zap.S().Named("chunk_worker"),
	}
}

func (w *ChunkWorker) Timeout(job *river.Job[ChunkArgs]) time.Duration {
	return w.timeout
}

func (w *ChunkWorker) Work(ctx context.Context, job *river.Job[ChunkArgs]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	jobID := job.Args.JobID

	rec, skip, err := beginStage(ctx, w.store, jobID, model.JobStatusChunking, progressExtracted)
	if err != nil || skip {
		return err
	}
	start := time.Now()

	records, err := w.store.Batch().List(ctx, jobID)
	if err != nil {
		return err
	}
	batches := make([]api.ExtractionBatch, 0, len(records))
	for _, record := range records {
		batch := api.ExtractionBatch{
			BatchID:   record.BatchID,
			PageStart: record.PageStart,
			PageEnd:   record.PageEnd,
		}
		if record.Elements != nil {
			batch.Elements = record.Elements.Data
		}
		batches = append(batches, batch)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	chunker := chunking.NewChunker(w.chunkSize, w.overlapSize, rec.SourceLanguage)
	chunks, err := chunker.Assemble(batches)
	if err != nil {
		var chunkErr *chunking.Error
		if errors.As(err, &chunkErr) {
			return failStage(ctx, w.store, jobID, "chunk", err)
		}
		return err
	}

	if err := w.store.Chunk().DeleteForJob(ctx, jobID); err != nil {
		return err
	}
	chunkRecords := make([]model.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		chunkRecords = append(chunkRecords, model.Chunk{
			JobID:   jobID,
			ChunkID: chunk.ChunkID,
			Payload: model.MakeJSONField(chunk),
		})
	}
	if err := w.store.Chunk().CreateAll(ctx, chunkRecords); err != nil {
		return err
	}

	if err := w.store.Job().UpdateProgress(ctx, jobID, progressChunked); err != nil {
		return err
	}
	w.log.Infow("chunking finished", "jobID", jobID, "batches", len(batches), "chunks", len(chunks))

	metrics.IncreaseStageCompletedMetric("chunk", "success")
	metrics.ObserveStageDurationMetric("chunk", time.Since(start))
	return enqueueNext(ctx, w.store, jobID, TranslateArgs{JobID: jobID})
}
