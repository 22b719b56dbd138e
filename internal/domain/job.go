package domain

import (
	"time"
)

// JobID is a unique identifier for a conversion job.
type JobID string

// String returns the string representation of the JobID.
func (id JobID) String() string {
	return string(id)
}

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ConvertRequest describes an ffmpeg conversion of a remote input.
// MediaType is the MIME type the output is served as.
type ConvertRequest struct {
	InputURL  string   `json:"url"`
	Args      []string `json:"args,omitempty"`
	ForceArgs []string `json:"force_args,omitempty"`
	Output    string   `json:"output,omitempty"`
	MediaType string   `json:"media_type,omitempty"`
}

// OutputInfo describes the media in a finished job's output.
type OutputInfo struct {
	Duration   float64 `json:"duration,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	VideoCodec string  `json:"video_codec,omitempty"`
	AudioCodec string  `json:"audio_codec,omitempty"`
}

// Job represents a conversion job in the queue. Jobs are not retried.
type Job struct {
	ID         JobID
	Request    ConvertRequest
	Status     JobStatus
	OutputPath string
	OutputSize int64
	OutputInfo *OutputInfo
	FileCount  int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewJob creates a new queued job.
func NewJob(id JobID, req ConvertRequest) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		Request:   req,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkProcessing updates the job status to processing.
func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now()
}

// MarkCompleted records the output and marks the job completed.
func (j *Job) MarkCompleted(outputPath string, size int64) {
	j.Status = JobStatusCompleted
	j.OutputPath = outputPath
	j.OutputSize = size
	j.UpdatedAt = time.Now()
}

// MarkFailed updates the job status to failed with an error message.
func (j *Job) MarkFailed(err string) {
	j.Status = JobStatusFailed
	j.LastError = err
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true once the job will no longer change.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
