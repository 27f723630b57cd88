package slideshow

import (
	"context"

	"github.com/amankumarsingh77/slideshow-encoder/internal/models"
)

type AWSRepository interface {
	PutObject(ctx context.Context, input models.UploadInput) error
}
