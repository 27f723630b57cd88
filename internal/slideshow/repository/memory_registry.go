package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amankumarsingh77/slideshow-encoder/internal/models"
	"github.com/amankumarsingh77/slideshow-encoder/internal/slideshow"
)

type memoryRegistry struct {
	mu   sync.RWMutex
	jobs map[string]models.JobRecord
	now  func() time.Time
}

func NewMemoryRegistry() slideshow.Registry {
	return &memoryRegistry{
		jobs: make(map[string]models.JobRecord),
		now:  time.Now,
	}
}

func (r *memoryRegistry) RecordStart(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[jobID]; ok {
		return slideshow.ErrAlreadyStarted
	}
	r.jobs[jobID] = models.JobRecord{
		ID:        jobID,
		Status:    models.JobStatusRunning,
		StartedAt: r.now(),
	}
	return nil
}

func (r *memoryRegistry) RecordResult(ctx context.Context, jobID string, outcome models.JobOutcome) error {
	if !outcome.Status.IsTerminal() {
		return fmt.Errorf("outcome status %q is not terminal", outcome.Status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.jobs[jobID]
	if !ok {
		return slideshow.ErrUnknownJob
	}
	if rec.Status.IsTerminal() {
		return slideshow.ErrAlreadyTerminal
	}
	rec.Status = outcome.Status
	rec.Reason = outcome.Reason
	rec.FinishedAt = r.now()
	r.jobs[jobID] = rec
	return nil
}

func (r *memoryRegistry) QueryStatus(ctx context.Context, jobID string) (*models.JobRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.jobs[jobID]
	if !ok {
		return &models.JobRecord{ID: jobID, Status: models.JobStatusUnknown}, nil
	}
	return &rec, nil
}
