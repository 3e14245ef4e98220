package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrJobNotFound struct {
	error
}

func NewErrJobNotFound(id uuid.UUID) *ErrJobNotFound {
	return &ErrJobNotFound{fmt.Errorf("job %s not found", id)}
}

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(message string) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf("bad request: %s", message)}
}

type ErrJobFinished struct {
	error
}

func NewErrJobFinished(id uuid.UUID, status string) *ErrJobFinished {
	return &ErrJobFinished{fmt.Errorf("job %s already reached terminal state %s", id, status)}
}
