package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/nclamvn/prismy-ultimate/internal/store/model"
)

var ErrRecordNotFound = errors.New("record not found")

// DefaultTTL bounds the lifetime of a job record and every intermediate
// artifact. It is refreshed on each write so active jobs never expire
// mid-pipeline.
const DefaultTTL = 24 * time.Hour

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Job() Job
	Batch() Batch
	Chunk() Chunk
	Translated() Translated
	Result() Result
	InitialMigration() error
	DeleteExpired(ctx context.Context) (int64, error)
	Close() error
}

type DataStore struct {
	db         *gorm.DB
	job        Job
	batch      Batch
	chunk      Chunk
	translated Translated
	result     Result
}

func NewStore(db *gorm.DB, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DataStore{
		db:         db,
		job:        NewJobStore(db, ttl),
		batch:      NewBatchStore(db, ttl),
		chunk:      NewChunkStore(db, ttl),
		translated: NewTranslatedStore(db, ttl),
		result:     NewResultStore(db, ttl),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Batch() Batch {
	return s.batch
}

func (s *DataStore) Chunk() Chunk {
	return s.chunk
}

func (s *DataStore) Translated() Translated {
	return s.translated
}

func (s *DataStore) Result() Result {
	return s.result
}

func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(
		&model.Job{},
		&model.ExtractionBatch{},
		&model.Chunk{},
		&model.TranslatedChunk{},
		&model.Result{},
	)
}

// DeleteExpired removes every record whose TTL elapsed. It is driven by a
// periodic sweep; a record past its expiry may therefore outlive its TTL by
// up to one sweep interval.
func (s *DataStore) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	var total int64
	for _, m := range []interface{}{
		&model.ExtractionBatch{},
		&model.Chunk{},
		&model.TranslatedChunk{},
		&model.Result{},
		&model.Job{},
	} {
		result := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(m)
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
	}
	return total, nil
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
