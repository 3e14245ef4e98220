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

// JobUpdate carries the optional fields of a field-level job update. Only
// non-nil fields are written, so concurrent writers touching different fields
// never clobber each other.
type JobUpdate struct {
	Progress        *int
	TotalPages      *int
	FileType        *string
	OutputRef       *string
	Error           *string
	PipelineTaskRef *int64
}

type Job interface {
	Create(ctx context.Context, job *model.Job) (*model.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	List(ctx context.Context, filter *JobQueryFilter) (model.JobList, error)
	Update(ctx context.Context, id uuid.UUID, updates JobUpdate) (*model.Job, error)
	Transition(ctx context.Context, id uuid.UUID, next model.JobStatus, updates JobUpdate) (*model.Job, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type JobStore struct {
	db  *gorm.DB
	ttl time.Duration
}

var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB, ttl time.Duration) Job {
	return &JobStore{db: db, ttl: ttl}
}

func (s *JobStore) Create(ctx context.Context, job *model.Job) (*model.Job, error) {
	if job.ID == (uuid.UUID{}) {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = model.JobStatusPending
	}
	job.ExpiresAt = time.Now().Add(s.ttl)
	result := s.getDB(ctx).Create(job)
	if result.Error != nil {
		return nil, result.Error
	}
	return job, nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &job, nil
}

func (s *JobStore) List(ctx context.Context, filter *JobQueryFilter) (model.JobList, error) {
	var jobs model.JobList
	tx := s.getDB(ctx).Model(&model.Job{}).Order("created_at DESC")
	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if result := tx.Find(&jobs); result.Error != nil {
		return nil, result.Error
	}
	return jobs, nil
}

// Update performs a field-level update and refreshes the record TTL.
func (s *JobStore) Update(ctx context.Context, id uuid.UUID, updates JobUpdate) (*model.Job, error) {
	job := model.Job{ID: id}
	selectFields := []string{"updated_at", "expires_at"}
	job.ExpiresAt = time.Now().Add(s.ttl)

	if updates.Progress != nil {
		job.Progress = *updates.Progress
		selectFields = append(selectFields, "progress")
	}
	if updates.TotalPages != nil {
		job.TotalPages = *updates.TotalPages
		selectFields = append(selectFields, "total_pages")
	}
	if updates.FileType != nil {
		job.FileType = *updates.FileType
		selectFields = append(selectFields, "file_type")
	}
	if updates.OutputRef != nil {
		job.OutputRef = updates.OutputRef
		selectFields = append(selectFields, "output_ref")
	}
	if updates.Error != nil {
		job.Error = updates.Error
		selectFields = append(selectFields, "error")
	}
	if updates.PipelineTaskRef != nil {
		job.PipelineTaskRef = updates.PipelineTaskRef
		selectFields = append(selectFields, "pipeline_task_ref")
	}

	result := s.getDB(ctx).Model(&job).Clauses(clause.Returning{}).Select(selectFields).Updates(&job)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return &job, nil
}

// Transition validates the state machine edge before applying the update.
// The read and write run in one transaction so two stages can never race the
// same edge.
func (s *JobStore) Transition(ctx context.Context, id uuid.UUID, next model.JobStatus, updates JobUpdate) (*model.Job, error) {
	var updated *model.Job
	err := s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Job
		if err := tx.First(&current, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		if err := current.Status.TransitionTo(next); err != nil {
			return err
		}

		current.Status = next
		current.ExpiresAt = time.Now().Add(s.ttl)
		selectFields := []string{"status", "updated_at", "expires_at"}

		if updates.Progress != nil {
			current.Progress = maxInt(current.Progress, *updates.Progress)
			selectFields = append(selectFields, "progress")
		}
		if updates.TotalPages != nil {
			current.TotalPages = *updates.TotalPages
			selectFields = append(selectFields, "total_pages")
		}
		if updates.OutputRef != nil {
			current.OutputRef = updates.OutputRef
			selectFields = append(selectFields, "output_ref")
		}
		if updates.Error != nil {
			current.Error = updates.Error
			selectFields = append(selectFields, "error")
		}
		if updates.PipelineTaskRef != nil {
			current.PipelineTaskRef = updates.PipelineTaskRef
			selectFields = append(selectFields, "pipeline_task_ref")
		}

		if err := tx.Model(&model.Job{ID: id}).Select(selectFields).Updates(&current).Error; err != nil {
			return err
		}
		updated = &current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateProgress advances the progress value. Progress is monotonic within a
// run: writes with a smaller value are silently dropped.
func (s *JobStore) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND progress < ?", id, progress).
		Updates(map[string]interface{}{
			"progress":   progress,
			"updated_at": time.Now(),
			"expires_at": time.Now().Add(s.ttl),
		})
	return result.Error
}

func (s *JobStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Delete(&model.Job{}, "id = ?", id)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
