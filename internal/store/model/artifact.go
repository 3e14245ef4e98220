package model

import (
	"time"

	"github.com/google/uuid"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
)

// ExtractionBatch is one persisted batch of extracted pages, keyed by
// (job_id, batch_id) and consumed once by the chunking stage.
type ExtractionBatch struct {
	JobID     uuid.UUID                      `gorm:"primaryKey"`
	BatchID   int                            `gorm:"primaryKey;autoIncrement:false"`
	PageStart int                            `gorm:"not null"`
	PageEnd   int                            `gorm:"not null"`
	Elements  *JSONField[[]api.Element]      `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

// Chunk is one persisted chunk awaiting translation.
type Chunk struct {
	JobID     uuid.UUID             `gorm:"primaryKey"`
	ChunkID   int                   `gorm:"primaryKey;autoIncrement:false"`
	Payload   *JSONField[api.Chunk] `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

// TranslatedChunk is one persisted translation result awaiting reconstruction.
type TranslatedChunk struct {
	JobID     uuid.UUID                       `gorm:"primaryKey"`
	ChunkID   int                             `gorm:"primaryKey;autoIncrement:false"`
	Payload   *JSONField[api.TranslatedChunk] `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

// Result holds the assembled output document for a completed job.
type Result struct {
	JobID        uuid.UUID `gorm:"primaryKey"`
	Content      string    `gorm:"not null"`
	Format       string    `gorm:"not null"`
	ChunkCount   int
	SoftFailures int
	CreatedAt    time.Time
	ExpiresAt    time.Time `gorm:"index"`
}
