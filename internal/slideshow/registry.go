package slideshow

import (
	"context"
	"errors"

	"github.com/amankumarsingh77/slideshow-encoder/internal/models"
)

var (
	ErrAlreadyStarted  = errors.New("job already registered")
	ErrAlreadyTerminal = errors.New("job already in a terminal state")
	ErrUnknownJob      = errors.New("unknown job")
)

// Registry tracks job state for the lifetime of the process.
type Registry interface {
	RecordStart(ctx context.Context, jobID string) error
	RecordResult(ctx context.Context, jobID string, outcome models.JobOutcome) error
	QueryStatus(ctx context.Context, jobID string) (*models.JobRecord, error)
}
