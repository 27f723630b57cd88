package slideshow

import (
	"context"
	"errors"

	"github.com/amankumarsingh77/slideshow-encoder/internal/models"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("video not found")
)

type UseCase interface {
	Generate(ctx context.Context, input *models.GenerateInput, baseURL string) (*models.GenerateResult, error)
	GetStatus(ctx context.Context, jobID string) (*models.StatusResponse, error)
	VideoPath(ctx context.Context, jobID string) (string, error)
}

// Runner executes a job's pipeline in the background.
type Runner interface {
	Submit(job *models.Job)
}
