package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nclamvn/prismy-ultimate/internal/store/model"
)

// Batch stores extraction batches keyed by (job_id, batch_id).
type Batch interface {
	Create(ctx context.Context, batch *model.ExtractionBatch) error
	List(ctx context.Context, jobID uuid.UUID) ([]model.ExtractionBatch, error)
	Count(ctx context.Context, jobID uuid.UUID) (int64, error)
	DeleteForJob(ctx context.Context, jobID uuid.UUID) error
}

type BatchStore struct {
	db  *gorm.DB
	ttl time.Duration
}

var _ Batch = (*BatchStore)(nil)

func NewBatchStore(db *gorm.DB, ttl time.Duration) Batch {
	return &BatchStore{db: db, ttl: ttl}
}

func (s *BatchStore) Create(ctx context.Context, batch *model.ExtractionBatch) error {
	batch.ExpiresAt = time.Now().Add(s.ttl)
	return s.getDB(ctx).Create(batch).Error
}

func (s *BatchStore) List(ctx context.Context, jobID uuid.UUID) ([]model.ExtractionBatch, error) {
	var batches []model.ExtractionBatch
	result := s.getDB(ctx).Where("job_id = ?", jobID).Order("batch_id").Find(&batches)
	if result.Error != nil {
		return nil, result.Error
	}
	return batches, nil
}

func (s *BatchStore) Count(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var count int64
	result := s.getDB(ctx).Model(&model.ExtractionBatch{}).Where("job_id = ?", jobID).Count(&count)
	return count, result.Error
}

func (s *BatchStore) DeleteForJob(ctx context.Context, jobID uuid.UUID) error {
	return s.getDB(ctx).Where("job_id = ?", jobID).Delete(&model.ExtractionBatch{}).Error
}

func (s *BatchStore) getDB(ctx context.Context) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}

// Chunk stores chunks awaiting translation, keyed by (job_id, chunk_id).
type Chunk interface {
	CreateAll(ctx context.Context, chunks []model.Chunk) error
	List(ctx context.Context, jobID uuid.UUID) ([]model.Chunk, error)
	Count(ctx context.Context, jobID uuid.UUID) (int64, error)
	DeleteForJob(ctx context.Context, jobID uuid.UUID) error
}

type ChunkStore struct {
	db  *gorm.DB
	ttl time.Duration
}

var _ Chunk = (*ChunkStore)(nil)

func NewChunkStore(db *gorm.DB, ttl time.Duration) Chunk {
	return &ChunkStore{db: db, ttl: ttl}
}

func (s *ChunkStore) CreateAll(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	expires := time.Now().Add(s.ttl)
	for i := range chunks {
		chunks[i].ExpiresAt = expires
	}
	return s.getDB(ctx).CreateInBatches(chunks, 100).Error
}

func (s *ChunkStore) List(ctx context.Context, jobID uuid.UUID) ([]model.Chunk, error) {
	var chunks []model.Chunk
	result := s.getDB(ctx).Where("job_id = ?", jobID).Order("chunk_id").Find(&chunks)
	if result.Error != nil {
		return nil, result.Error
	}
	return chunks, nil
}

func (s *ChunkStore) Count(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var count int64
	result := s.getDB(ctx).Model(&model.Chunk{}).Where("job_id = ?", jobID).Count(&count)
	return count, result.Error
}

func (s *ChunkStore) DeleteForJob(ctx context.Context, jobID uuid.UUID) error {
	return s.getDB(ctx).Where("job_id = ?", jobID).Delete(&model.Chunk{}).Error
}

func (s *ChunkStore) getDB(ctx context.Context) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}

// Translated stores translation results. Save is an upsert so a retried
// translation stage can overwrite its own partial output.
type Translated interface {
	Save(ctx context.Context, chunk *model.TranslatedChunk) error
	List(ctx context.Context, jobID uuid.UUID) ([]model.TranslatedChunk, error)
	Count(ctx context.Context, jobID uuid.UUID) (int64, error)
	DeleteForJob(ctx context.Context, jobID uuid.UUID) error
}

type TranslatedStore struct {
	db  *gorm.DB
	ttl time.Duration
}

var _ Translated = (*TranslatedStore)(nil)

func NewTranslatedStore(db *gorm.DB, ttl time.Duration) Translated {
	return &TranslatedStore{db: db, ttl: ttl}
}

func (s *TranslatedStore) Save(ctx context.Context, chunk *model.TranslatedChunk) error {
	chunk.ExpiresAt = time.Now().Add(s.ttl)
	return s.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "chunk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at"}),
	}).Create(chunk).Error
}

func (s *TranslatedStore) List(ctx context.Context, jobID uuid.UUID) ([]model.TranslatedChunk, error) {
	var chunks []model.TranslatedChunk
	result := s.getDB(ctx).Where("job_id = ?", jobID).Order("chunk_id").Find(&chunks)
	if result.Error != nil {
		return nil, result.Error
	}
	return chunks, nil
}

func (s *TranslatedStore) Count(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var count int64
	result := s.getDB(ctx).Model(&model.TranslatedChunk{}).Where("job_id = ?", jobID).Count(&count)
	return count, result.Error
}

func (s *TranslatedStore) DeleteForJob(ctx context.Context, jobID uuid.UUID) error {
	return s.getDB(ctx).Where("job_id = ?", jobID).Delete(&model.TranslatedChunk{}).Error
}

func (s *TranslatedStore) getDB(ctx context.Context) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}

// Result stores the assembled output document, one record per job.
type Result interface {
	Set(ctx context.Context, result *model.Result) error
	Get(ctx context.Context, jobID uuid.UUID) (*model.Result, error)
	DeleteForJob(ctx context.Context, jobID uuid.UUID) error
}

type ResultStore struct {
	db  *gorm.DB
	ttl time.Duration
}

var _ Result = (*ResultStore)(nil)

func NewResultStore(db *gorm.DB, ttl time.Duration) Result {
	return &ResultStore{db: db, ttl: ttl}
}

func (s *ResultStore) Set(ctx context.Context, result *model.Result) error {
	result.ExpiresAt = time.Now().Add(s.ttl)
	return s.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "format", "chunk_count", "soft_failures", "expires_at"}),
	}).Create(result).Error
}

func (s *ResultStore) Get(ctx context.Context, jobID uuid.UUID) (*model.Result, error) {
	var result model.Result
	err := s.getDB(ctx).First(&result, "job_id = ?", jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (s *ResultStore) DeleteForJob(ctx context.Context, jobID uuid.UUID) error {
	return s.getDB(ctx).Where("job_id = ?", jobID).Delete(&model.Result{}).Error
}

func (s *ResultStore) getDB(ctx context.Context) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}
