package models

import "time"

type JobStatus string

const (
	JobStatusUnknown   JobStatus = "unknown"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transitions can happen.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Job is one slideshow request. All artifacts of the job are namespaced by ID.
type Job struct {
	ID           string    `json:"job_id"`
	ImageSources []string  `json:"image_urls"`
	AudioSource  string    `json:"audio_url"`
	OutputPath   string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type GenerateInput struct {
	ImageURLs []string `json:"image_urls" validate:"required,min=1,dive,required,url"`
	AudioURL  string   `json:"audio_url" validate:"required,url"`
}

type GenerateResult struct {
	Message   string `json:"message"`
	JobID     string `json:"job_id"`
	VideoURL  string `json:"video_url"`
	StatusURL string `json:"status_url"`
}

// JobOutcome is the terminal result of a job as written by the runner.
type JobOutcome struct {
	Status JobStatus
	Reason string
}

type JobRecord struct {
	ID         string    `json:"job_id" redis:"job_id"`
	Status     JobStatus `json:"status" redis:"status"`
	Reason     string    `json:"reason,omitempty" redis:"reason"`
	StartedAt  time.Time `json:"started_at" redis:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty" redis:"finished_at"`
}

type StatusResponse struct {
	Ready  bool      `json:"ready"`
	Status JobStatus `json:"status"`
	Failed bool      `json:"failed"`
	Reason string    `json:"reason,omitempty"`
}
