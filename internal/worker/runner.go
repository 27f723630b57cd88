package worker

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/amankumarsingh77/slideshow-encoder/internal/config"
	"github.com/amankumarsingh77/slideshow-encoder/internal/models"
	"github.com/amankumarsingh77/slideshow-encoder/internal/slideshow"
	"github.com/amankumarsingh77/slideshow-encoder/pkg/logger"
	"github.com/amankumarsingh77/slideshow-encoder/pkg/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const finishTimeout = 10 * time.Second

var errShuttingDown = errors.New("service is shutting down")

// RunnerDeps wires a Runner. Fetcher, Normalizer and Encoder default to the
// real implementations built from Config; AWSRepo is optional and publishing
// is skipped without it.
type RunnerDeps struct {
	Config     *config.Config
	Registry   slideshow.Registry
	Logger     logger.Logger
	Fetcher    AssetFetcher
	Normalizer ImageNormalizer
	Encoder    VideoEncoder
	AWSRepo    slideshow.AWSRepository
}

// Runner executes slideshow jobs in background goroutines, at most
// Worker.MaxConcurrentJobs at a time.
type Runner struct {
	cfg        *config.Config
	registry   slideshow.Registry
	logger     logger.Logger
	fetcher    AssetFetcher
	normalizer ImageNormalizer
	encoder    VideoEncoder
	awsRepo    slideshow.AWSRepository

	sem    chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewRunner(d RunnerDeps) *Runner {
	if d.Fetcher == nil {
		d.Fetcher = NewFetcher(d.Config.Fetcher)
	}
	if d.Normalizer == nil {
		d.Normalizer = NewNormalizer(d.Config.Slideshow)
	}
	if d.Encoder == nil {
		d.Encoder = NewEncoder(d.Config.Encoder)
	}
	if d.Logger == nil {
		d.Logger = logger.NewNopLogger()
	}

	maxJobs := d.Config.Worker.MaxConcurrentJobs
	if maxJobs < 1 {
		maxJobs = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cfg:        d.Config,
		registry:   d.Registry,
		logger:     d.Logger,
		fetcher:    d.Fetcher,
		normalizer: d.Normalizer,
		encoder:    d.Encoder,
		awsRepo:    d.AWSRepo,
		sem:        make(chan struct{}, maxJobs),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Submit starts job in the background and returns immediately. The job must
// already be registered as running.
func (r *Runner) Submit(job *models.Job) {
	if job.OutputPath == "" {
		job.OutputPath = filepath.Join(r.cfg.Storage.OutputDir, job.ID+".mp4")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.finish(job, errShuttingDown)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(job)
}

// Shutdown cancels every pipeline and waits for them to record their
// outcome, or for ctx to expire.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run(job *models.Job) {
	defer r.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			r.finish(job, errors.Errorf("panic: %v", rec))
		}
	}()

	select {
	case r.sem <- struct{}{}:
	case <-r.ctx.Done():
		r.finish(job, errShuttingDown)
		return
	}
	defer func() { <-r.sem }()

	r.logger.Infof("job %s: started with %d images", job.ID, len(job.ImageSources))
	err := r.process(r.ctx, job)
	r.finish(job, err)
	if err != nil {
		return
	}

	// Publishing runs after the outcome is recorded; a failure only logs.
	if err := r.publish(r.ctx, job); err != nil {
		r.logger.Warnf("job %s: publish to object storage failed: %v", job.ID, err)
	}
}

func (r *Runner) process(ctx context.Context, job *models.Job) error {
	paths := jobPaths{tempDir: r.cfg.Storage.TempDir, id: job.ID}

	audio, err := r.fetchAudio(ctx, job.AudioSource, paths)
	if err != nil {
		return errors.Wrap(err, "fetch audio")
	}

	images := r.prepareImages(ctx, job, paths)
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "prepare images")
	}

	entries, err := BuildManifest(images, r.cfg.Slideshow.TotalDuration)
	if err != nil {
		return errors.Wrap(err, "build manifest")
	}
	if err := WriteManifest(paths.manifest(), entries); err != nil {
		return errors.Wrap(err, "write manifest")
	}

	err = utils.WaitForCPU(ctx, r.cfg.Worker.MaxCPUUsage, r.cfg.Worker.CPUCheckInterval, func(usage float64) {
		r.logger.Warnf("job %s: CPU usage %.2f%% above %.2f%%, delaying encode", job.ID, usage, r.cfg.Worker.MaxCPUUsage)
	})
	if err != nil {
		return errors.Wrap(err, "wait for cpu")
	}

	if err := r.encoder.Encode(ctx, paths.manifest(), audio, job.OutputPath); err != nil {
		return errors.Wrap(err, "encode")
	}
	return nil
}

// fetchAudio downloads the soundtrack and renames it with the extension of
// its sniffed content type. Text and image bodies are rejected.
func (r *Runner) fetchAudio(ctx context.Context, url string, paths jobPaths) (string, error) {
	dst, err := r.fetcher.Fetch(ctx, url, paths.audio())
	if err != nil {
		return "", err
	}

	mtype, err := mimetype.DetectFile(dst)
	if err != nil {
		return "", err
	}
	if !isAudioLike(mtype.String()) {
		return "", errors.Errorf("%s is not audio (%s)", url, mtype.String())
	}
	if ext := mtype.Extension(); ext != "" {
		named := dst + ext
		if err := os.Rename(dst, named); err != nil {
			return "", err
		}
		dst = named
	}
	return dst, nil
}

func isAudioLike(mime string) bool {
	switch {
	case strings.HasPrefix(mime, "text/"), strings.HasPrefix(mime, "image/"):
		return false
	case mime == "application/json", mime == "application/pdf":
		return false
	}
	return true
}

// prepareImages fetches and normalizes every image concurrently and returns
// the paths of the ones that made it, in input order.
func (r *Runner) prepareImages(ctx context.Context, job *models.Job, paths jobPaths) []string {
	results := make([]string, len(job.ImageSources))

	var g errgroup.Group
	limit := r.cfg.Worker.ImageConcurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, url := range job.ImageSources {
		g.Go(func() error {
			out, err := r.prepareImage(ctx, i, url, paths.image(i))
			if err != nil {
				r.logger.Warnf("job %s: skipping image %d: %v", job.ID, i, err)
				return nil
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()

	images := make([]string, 0, len(results))
	for _, p := range results {
		if p != "" {
			images = append(images, p)
		}
	}
	return images
}

// prepareImage fetches and normalizes one image. A panic in a decoder is
// reported as an error for that image only.
func (r *Runner) prepareImage(ctx context.Context, index int, url, dst string) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = "", &NormalizeError{Index: index, Err: errors.Errorf("panic: %v", rec)}
		}
	}()

	data, err := r.fetcher.FetchBytes(ctx, url)
	if err != nil {
		return "", err
	}
	return r.normalizer.Normalize(index, data, dst)
}

func (r *Runner) publish(ctx context.Context, job *models.Job) error {
	if r.awsRepo == nil {
		return nil
	}

	f, err := os.Open(job.OutputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	key := path.Join(r.cfg.S3.KeyPrefix, job.ID+".mp4")
	err = r.awsRepo.PutObject(ctx, models.UploadInput{
		File:        f,
		Key:         key,
		BucketName:  r.cfg.S3.OutputBucket,
		ContentType: "video/mp4",
		Size:        info.Size(),
	})
	if err != nil {
		return err
	}
	r.logger.Infof("job %s: published to s3://%s/%s", job.ID, r.cfg.S3.OutputBucket, key)
	return nil
}

// finish records the terminal state and removes the job's scratch files.
func (r *Runner) finish(job *models.Job, err error) {
	outcome := models.JobOutcome{Status: models.JobStatusSucceeded}
	if err != nil {
		outcome = models.JobOutcome{Status: models.JobStatusFailed, Reason: err.Error()}
		r.logger.Errorf("job %s: failed: %v", job.ID, err)
	} else {
		r.logger.Infof("job %s: video ready at %s", job.ID, job.OutputPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()
	if err := r.registry.RecordResult(ctx, job.ID, outcome); err != nil {
		r.logger.Errorf("job %s: failed to record %s: %v", job.ID, outcome.Status, err)
	}

	r.cleanup(job.ID)
}

func (r *Runner) cleanup(jobID string) {
	if r.cfg.Storage.KeepTemp {
		return
	}
	paths := jobPaths{tempDir: r.cfg.Storage.TempDir, id: jobID}
	matches, err := filepath.Glob(paths.glob())
	if err != nil {
		r.logger.Warnf("job %s: cleanup: %v", jobID, err)
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			r.logger.Warnf("job %s: cleanup %s: %v", jobID, m, err)
		}
	}
}
