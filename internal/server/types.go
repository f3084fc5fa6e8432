// Package server provides the HTTP API for widescreen jobs.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/widescreen/internal/job"
)

// ConvertJobRequest is the HTTP request body for padding a video to 16:9.
// Exactly one of VideoBase64 and SourceJobID must be set.
type ConvertJobRequest struct {
	// VideoBase64 is the base64-encoded source video.
	VideoBase64 string `json:"video_base64" validate:"omitempty,base64"`
	// SourceJobID converts the output of a completed job instead.
	SourceJobID string `json:"source_job_id" validate:"required_without=VideoBase64,excluded_with=VideoBase64"`
	// PushToS3 indicates whether to upload the final video to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// FetchJobRequest is the HTTP request body for downloading a video.
type FetchJobRequest struct {
	// URL is the page yt-dlp downloads from.
	URL string `json:"url" validate:"required,url"`
	// UseCookies reads cookies from a local browser.
	UseCookies bool `json:"use_cookies"`
	// Browser is the cookie source; a platform default is used when empty.
	Browser string `json:"browser" validate:"omitempty,oneof=chrome firefox safari edge opera"`
	// PushToS3 indicates whether to upload the downloaded video to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Kind is convert or fetch.
	Kind string `json:"kind"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	// Error contains any error message if the job failed.
	Error string `json:"error,omitempty"`

	SourceURL   string `json:"source_url,omitempty"`
	SourceJobID string `json:"source_job_id,omitempty"`

	// Width, Height and Frames describe a convert job's output.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
	Frames int `json:"frames,omitempty"`

	// VideoURL is the S3 URL of the output video (if push_to_s3=true and completed).
	VideoURL string `json:"video_url,omitempty"`
	// DownloadPath serves the local output video while it exists.
	DownloadPath string `json:"download_path,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListJobsResponse is the HTTP response for listing jobs.
type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

// newJobResponse maps a job to its API representation.
func newJobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:          j.ID,
		Kind:        string(j.Kind),
		Status:      string(j.Status),
		Progress:    j.Progress,
		Error:       j.Error,
		SourceURL:   j.SourceURL,
		SourceJobID: j.SourceJobID,
		Width:       j.Width,
		Height:      j.Height,
		Frames:      j.Frames,
		VideoURL:    j.OutputURL,
		CreatedAt:   j.CreatedAt,
	}
	if j.Status == job.StatusCompleted && j.OutputPath != "" {
		resp.DownloadPath = "/jobs/" + j.ID + "/video"
	}
	if !j.StartedAt.IsZero() {
		t := j.StartedAt
		resp.StartedAt = &t
	}
	if !j.CompletedAt.IsZero() {
		t := j.CompletedAt
		resp.CompletedAt = &t
	}
	return resp
}
