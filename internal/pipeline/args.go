// Package pipeline runs the four-stage translation pipeline on river queues.
// Queue messages carry only the job id; all state lives in the store, so a
// redelivered or duplicated message is always safe to reprocess.
package pipeline

import (
	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

const (
	QueueExtract     = "extract"
	QueueChunk       = "chunk"
	QueueTranslate   = "translate"
	QueueReconstruct = "reconstruct"

	MaxStageRetries = 3
)

type ExtractArgs struct {
	JobID uuid.UUID `json:"job_id"`
}

func (ExtractArgs) Kind() string {
	return "extract"
}

func (ExtractArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueExtract,
		MaxAttempts: MaxStageRetries,
	}
}

type ChunkArgs struct {
	JobID uuid.UUID `json:"job_id"`
}

func (ChunkArgs) Kind() string {
	return "chunk"
}

func (ChunkArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueChunk,
		MaxAttempts: MaxStageRetries,
	}
}

type TranslateArgs struct {
	JobID uuid.UUID `json:"job_id"`
}

func (TranslateArgs) Kind() string {
	return "translate"
}

func (TranslateArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueTranslate,
		MaxAttempts: MaxStageRetries,
	}
}

type ReconstructArgs struct {
	JobID uuid.UUID `json:"job_id"`
}

func (ReconstructArgs) Kind() string {
	return "reconstruct"
}

func (ReconstructArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueReconstruct,
		MaxAttempts: MaxStageRetries,
	}
}
