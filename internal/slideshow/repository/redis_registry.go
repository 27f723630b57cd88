package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amankumarsingh77/slideshow-encoder/internal/models"
	"github.com/amankumarsingh77/slideshow-encoder/internal/slideshow"
	"github.com/go-redis/redis/v8"
)

type redisRegistry struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
}

// NewRedisRegistry stores job records as hashes under keyPrefix+jobID. Records
// expire after ttl; a zero ttl keeps them forever.
func NewRedisRegistry(redisClient *redis.Client, keyPrefix string, ttl time.Duration) slideshow.Registry {
	return &redisRegistry{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
	}
}

func (r *redisRegistry) key(jobID string) string {
	return r.keyPrefix + jobID
}

func (r *redisRegistry) RecordStart(ctx context.Context, jobID string) error {
	key := r.key(jobID)
	created, err := r.redisClient.HSetNX(ctx, key, "status", string(models.JobStatusRunning)).Result()
	if err != nil {
		return fmt.Errorf("failed to record job start: %w", err)
	}
	if !created {
		return slideshow.ErrAlreadyStarted
	}

	pipe := r.redisClient.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"job_id":     jobID,
		"started_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record job start: %w", err)
	}
	return nil
}

func (r *redisRegistry) RecordResult(ctx context.Context, jobID string, outcome models.JobOutcome) error {
	if !outcome.Status.IsTerminal() {
		return fmt.Errorf("outcome status %q is not terminal", outcome.Status)
	}
	key := r.key(jobID)

	// WATCH makes the running -> terminal transition happen at most once even
	// with several writers.
	return r.redisClient.Watch(ctx, func(tx *redis.Tx) error {
		status, err := tx.HGet(ctx, key, "status").Result()
		if err == redis.Nil {
			return slideshow.ErrUnknownJob
		}
		if err != nil {
			return fmt.Errorf("failed to read job status: %w", err)
		}
		if models.JobStatus(status).IsTerminal() {
			return slideshow.ErrAlreadyTerminal
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]interface{}{
				"status":      string(outcome.Status),
				"reason":      outcome.Reason,
				"finished_at": time.Now().UTC().Format(time.RFC3339Nano),
			})
			if r.ttl > 0 {
				pipe.Expire(ctx, key, r.ttl)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		return nil
	}, key)
}

func (r *redisRegistry) QueryStatus(ctx context.Context, jobID string) (*models.JobRecord, error) {
	fields, err := r.redisClient.HGetAll(ctx, r.key(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get job status: %w", err)
	}
	rec := &models.JobRecord{ID: jobID, Status: models.JobStatusUnknown}
	if len(fields) == 0 {
		return rec, nil
	}
	if status := fields["status"]; status != "" {
		rec.Status = models.JobStatus(status)
	}
	rec.Reason = fields["reason"]
	rec.StartedAt = parseTime(fields["started_at"])
	rec.FinishedAt = parseTime(fields["finished_at"])
	return rec, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
