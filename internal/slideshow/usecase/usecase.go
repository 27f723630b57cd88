package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/amankumarsingh77/slideshow-encoder/internal/config"
	"github.com/amankumarsingh77/slideshow-encoder/internal/models"
	"github.com/amankumarsingh77/slideshow-encoder/internal/slideshow"
	"github.com/amankumarsingh77/slideshow-encoder/pkg/logger"
	"github.com/amankumarsingh77/slideshow-encoder/pkg/utils"
	"github.com/google/uuid"
)

const generateMessage = "Video generation started. Poll status_url until ready, then download video_url."

type slideshowUC struct {
	cfg      *config.Config
	registry slideshow.Registry
	runner   slideshow.Runner
	logger   logger.Logger
}

func NewSlideshowUseCase(
	cfg *config.Config,
	registry slideshow.Registry,
	runner slideshow.Runner,
	log logger.Logger,
) slideshow.UseCase {
	return &slideshowUC{
		cfg:      cfg,
		registry: registry,
		runner:   runner,
		logger:   log,
	}
}

func (u *slideshowUC) Generate(ctx context.Context, input *models.GenerateInput, baseURL string) (*models.GenerateResult, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: empty request body", slideshow.ErrInvalidInput)
	}
	if err := utils.ValidateStruct(ctx, input); err != nil {
		u.logger.Warnf("Generate - ValidateStruct error: %v", err)
		return nil, fmt.Errorf("%w: %v", slideshow.ErrInvalidInput, err)
	}

	jobID := uuid.New().String()
	job := &models.Job{
		ID:           jobID,
		ImageSources: input.ImageURLs,
		AudioSource:  input.AudioURL,
		OutputPath:   u.outputPath(jobID),
		CreatedAt:    time.Now(),
	}
	if err := u.registry.RecordStart(ctx, jobID); err != nil {
		u.logger.Errorf("Generate - RecordStart error: %v", err)
		return nil, fmt.Errorf("failed to register job: %w", err)
	}
	u.runner.Submit(job)
	u.logger.Infof("job %s accepted with %d images", jobID, len(input.ImageURLs))

	return &models.GenerateResult{
		Message:   generateMessage,
		JobID:     jobID,
		VideoURL:  fmt.Sprintf("%s/videos/%s.mp4", baseURL, jobID),
		StatusURL: fmt.Sprintf("%s/status/%s", baseURL, jobID),
	}, nil
}

// GetStatus never fails for ids it has not seen; they report unknown, or
// succeeded when a finished video from an earlier run is on disk.
func (u *slideshowUC) GetStatus(ctx context.Context, jobID string) (*models.StatusResponse, error) {
	rec, err := u.registry.QueryStatus(ctx, jobID)
	if err != nil {
		u.logger.Errorf("GetStatus - QueryStatus error: %v", err)
		rec = &models.JobRecord{ID: jobID, Status: models.JobStatusUnknown}
	}

	status := rec.Status
	if status == models.JobStatusUnknown && u.videoExists(jobID) {
		status = models.JobStatusSucceeded
	}
	return &models.StatusResponse{
		Ready:  status == models.JobStatusSucceeded,
		Status: status,
		Failed: status == models.JobStatusFailed,
		Reason: rec.Reason,
	}, nil
}

func (u *slideshowUC) VideoPath(ctx context.Context, jobID string) (string, error) {
	if !u.videoExists(jobID) {
		return "", slideshow.ErrNotFound
	}
	return u.outputPath(jobID), nil
}

func (u *slideshowUC) outputPath(jobID string) string {
	return filepath.Join(u.cfg.Storage.OutputDir, jobID+".mp4")
}

func (u *slideshowUC) videoExists(jobID string) bool {
	if _, err := uuid.Parse(jobID); err != nil {
		return false
	}
	info, err := os.Stat(u.outputPath(jobID))
	return err == nil && info.Mode().IsRegular()
}
