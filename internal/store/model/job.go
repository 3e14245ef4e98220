package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending        JobStatus = "PENDING"
	JobStatusExtracting     JobStatus = "EXTRACTING"
	JobStatusChunking       JobStatus = "CHUNKING"
	JobStatusTranslating    JobStatus = "TRANSLATING"
	JobStatusReconstructing JobStatus = "RECONSTRUCTING"
	JobStatusCompleted      JobStatus = "COMPLETED"
	JobStatusFailed         JobStatus = "FAILED"
	JobStatusCancelled      JobStatus = "CANCELLED"
)

var ErrInvalidTransition = errors.New("invalid job status transition")

// validTransitions encodes the pipeline state machine. Terminal states have no
// outgoing edges; every non-terminal state may fail or be cancelled.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:        {JobStatusExtracting, JobStatusFailed, JobStatusCancelled},
	JobStatusExtracting:     {JobStatusChunking, JobStatusFailed, JobStatusCancelled},
	JobStatusChunking:       {JobStatusTranslating, JobStatusFailed, JobStatusCancelled},
	JobStatusTranslating:    {JobStatusReconstructing, JobStatusFailed, JobStatusCancelled},
	JobStatusReconstructing: {JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
	JobStatusCompleted:      {},
	JobStatusFailed:         {},
	JobStatusCancelled:      {},
}

// stageRank orders the happy-path states so a worker can tell whether a
// duplicate queue delivery refers to a stage the job already moved past.
var stageRank = map[JobStatus]int{
	JobStatusPending:        0,
	JobStatusExtracting:     1,
	JobStatusChunking:       2,
	JobStatusTranslating:    3,
	JobStatusReconstructing: 4,
	JobStatusCompleted:      5,
}

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Past reports whether the job already progressed beyond the given stage
// status on the happy path.
func (s JobStatus) Past(stage JobStatus) bool {
	rank, ok := stageRank[s]
	if !ok {
		return false
	}
	return rank > stageRank[stage]
}

func (s JobStatus) TransitionTo(next JobStatus) error {
	if !s.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}

type Job struct {
	ID              uuid.UUID `gorm:"primaryKey"`
	Status          JobStatus `gorm:"type:VARCHAR(24);not null"`
	Progress        int       `gorm:"not null;default:0"`
	FileType        string
	FilePath        string
	TotalPages      int
	SourceLanguage  string
	TargetLanguage  string
	Tier            string
	OutputRef       *string
	Error           *string
	PipelineTaskRef *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiresAt       time.Time `gorm:"index"`
}

type JobList []Job

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}
