// Package job provides the Job aggregate for background convert and fetch
// work, its state machine, repositories and the Service that runs jobs.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/widescreen/internal/job/id"
)

// Kind is the type of work a job performs.
type Kind string

const (
	// KindConvert pads a video to 16:9.
	KindConvert Kind = "convert"
	// KindFetch downloads a remote video with yt-dlp.
	KindFetch Kind = "fetch"
)

// IsValid returns true if the kind is known.
func (k Kind) IsValid() bool {
	return k == KindConvert || k == KindFetch
}

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting for a free slot.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the job is being processed.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the job finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the job encountered an error.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
// A queued job can fail without running when its input disappears or the
// process restarts.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Job is the aggregate for one unit of background work.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Kind selects the work performed.
	Kind Kind
	// Status is the current job state.
	Status Status
	// Progress is the percentage of completion (0-100).
	Progress int
	// Error contains any error message if the job failed.
	Error string

	// InputPath is the video a convert job reads.
	InputPath string
	// OwnsInput marks InputPath as an upload to delete after the run.
	OwnsInput bool
	// SourceJobID is the fetch job whose output a convert job reads.
	SourceJobID string

	// SourceURL is the page a fetch job downloads.
	SourceURL string
	// UseCookies enables browser cookies for a fetch job.
	UseCookies bool
	// Browser is the cookie source for a fetch job.
	Browser string

	// OutputPath is the local path of the produced video.
	OutputPath string
	// Width and Height are the output dimensions of a convert job.
	Width  int
	Height int
	// Frames is the number of frames a convert job wrote.
	Frames int

	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool
	// OutputURL is the S3 URL if PushToS3 was true.
	OutputURL string

	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Job of the given kind with a generated ID and initial
// IN_QUEUE status.
func New(kind Kind) *Job {
	return NewWithID(id.Generate(), kind)
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE status.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID string, kind Kind) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Kind:      kind,
		Status:    StatusInQueue,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	// Set timestamps based on state
	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted:
		j.Progress = 100
		j.CompletedAt = j.UpdatedAt
	case StatusFailed:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
// Returns ErrInvalidTransition if the job is not in IN_QUEUE state.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED state and sets progress to 100.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED state with an error message.
// The message is only recorded if the transition is allowed.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusFailed); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// UpdateProgress sets the progress percentage (0-100). Progress never
// moves backwards while the job runs.
func (j *Job) UpdateProgress(progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	progress = min(max(progress, 0), 100)
	if progress < j.Progress {
		return
	}
	j.Progress = progress
	j.UpdatedAt = time.Now()
}

// SetOutput sets the output video path and optional S3 URL.
func (j *Job) SetOutput(videoPath, videoURL string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputPath = videoPath
	j.OutputURL = videoURL
	j.UpdatedAt = time.Now()
}

// SetConversion records the result of a convert run.
func (j *Job) SetConversion(frames, width, height int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Frames = frames
	j.Width = width
	j.Height = height
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Clone creates a copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:          j.ID,
		Kind:        j.Kind,
		Status:      j.Status,
		Progress:    j.Progress,
		Error:       j.Error,
		InputPath:   j.InputPath,
		OwnsInput:   j.OwnsInput,
		SourceJobID: j.SourceJobID,
		SourceURL:   j.SourceURL,
		UseCookies:  j.UseCookies,
		Browser:     j.Browser,
		OutputPath:  j.OutputPath,
		Width:       j.Width,
		Height:      j.Height,
		Frames:      j.Frames,
		PushToS3:    j.PushToS3,
		OutputURL:   j.OutputURL,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
