package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrInvalidInput is returned when a tweet URL is malformed, is not on a
	// Twitter/X host, or does not match the status path pattern.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTweetNotFound is returned when the syndication API has no such tweet.
	ErrTweetNotFound = errors.New("tweet not found")

	// ErrManifestFormat is returned when a manifest lacks the #EXTM3U header.
	ErrManifestFormat = errors.New("manifest is not a valid M3U playlist")

	// ErrJobNotFound is returned when a conversion job cannot be found.
	ErrJobNotFound = errors.New("job not found")

	// ErrNoJobs is returned when there are no jobs to process.
	ErrNoJobs = errors.New("no jobs available")

	// ErrJobNotReady is returned when a job's output is requested before it completed.
	ErrJobNotReady = errors.New("job output not ready")

	// ErrEmptyArgs is returned when a conversion is submitted without ffmpeg arguments.
	ErrEmptyArgs = errors.New("ffmpeg arguments are required")
)

// RemoteAPIError is a non-2xx, non-404 response from the syndication endpoint.
type RemoteAPIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("twitter API error (status %d): %s", e.Status, e.Message)
}

// JobError wraps an error with job context.
type JobError struct {
	JobID JobID
	Op    string
	Err   error
}

func (e *JobError) Error() string {
	if e.JobID != "" {
		return e.Op + " [" + e.JobID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// NewJobError creates a new JobError.
func NewJobError(jobID JobID, op string, err error) *JobError {
	return &JobError{
		JobID: jobID,
		Op:    op,
		Err:   err,
	}
}
