package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"

	"github.com/nclamvn/prismy-ultimate/internal/config"
	"github.com/nclamvn/prismy-ultimate/internal/extraction"
	"github.com/nclamvn/prismy-ultimate/internal/store"
	"github.com/nclamvn/prismy-ultimate/internal/translation"
	"github.com/nclamvn/prismy-ultimate/pkg/objstore"
)

type Client struct {
	*river.Client[pgx.Tx]
}

// NewClient builds the river client with one queue per pipeline stage. Worker
// counts per queue come from configuration.
func NewClient(pool *pgxpool.Pool, s store.Store, manager *translation.Manager, objects objstore.ObjectStore, cfg *config.Config) (*Client, error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, NewExtractWorker(s, extraction.NewRegistry(), cfg))
	river.AddWorker(workers, NewChunkWorker(s, cfg))
	river.AddWorker(workers, NewTranslateWorker(s, manager, cfg))
	river.AddWorker(workers, NewReconstructWorker(s, objects, cfg))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			QueueExtract:     {MaxWorkers: cfg.Pipeline.ExtractWorkers},
			QueueChunk:       {MaxWorkers: cfg.Pipeline.ChunkWorkers},
			QueueTranslate:   {MaxWorkers: cfg.Pipeline.TranslateWorkers},
			QueueReconstruct: {MaxWorkers: cfg.Pipeline.ReconstructWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, err
	}

	return &Client{Client: riverClient}, nil
}

// NewInsertClient builds a river client without workers or queues. It can
// enqueue and cancel pipeline tasks but never processes them; the CLI job
// commands use it.
func NewInsertClient(pool *pgxpool.Pool) (*Client, error) {
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{})
	if err != nil {
		return nil, err
	}
	return &Client{Client: riverClient}, nil
}

// EnqueueExtract starts the pipeline for a job and returns the river job id
// of the first stage.
func (c *Client) EnqueueExtract(ctx context.Context, jobID uuid.UUID) (int64, error) {
	result, err := c.Insert(ctx, ExtractArgs{JobID: jobID}, nil)
	if err != nil {
		return 0, err
	}
	return result.Job.ID, nil
}

// CancelTask cancels the in-flight stage message of a job. A message that
// already finished or was pruned counts as cancelled.
func (c *Client) CancelTask(ctx context.Context, taskRef int64) error {
	_, err := c.JobCancel(ctx, taskRef)
	if errors.Is(err, rivertype.ErrNotFound) {
		return nil
	}
	return err
}
