package job

import (
	"cmp"
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("job not found")

// Repository defines the interface for job persistence.
// It acts as a port in the hexagonal architecture pattern.
type Repository interface {
	// Save persists a job to the storage.
	// If the job already exists, it should be updated.
	Save(ctx context.Context, job *Job) error

	// FindByID retrieves a job by its unique identifier.
	// Returns ErrJobNotFound if the job does not exist.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns all jobs, oldest first.
	List(ctx context.Context) ([]*Job, error)

	// Delete removes a job from storage.
	// Returns ErrJobNotFound if the job does not exist.
	Delete(ctx context.Context, id string) error
}

// compareRecords orders records oldest first, breaking ties by ID. It
// matches the ORDER BY of SQLiteRepository.List.
func compareRecords(a, b jobRecord) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// jobRecord is a detached snapshot of a Job. MemoryRepository keeps it by
// value and SQLiteRepository stores it as JSON in the data column.
type jobRecord struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	Error       string    `json:"error,omitempty"`
	InputPath   string    `json:"input_path,omitempty"`
	OwnsInput   bool      `json:"owns_input,omitempty"`
	SourceJobID string    `json:"source_job_id,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	UseCookies  bool      `json:"use_cookies,omitempty"`
	Browser     string    `json:"browser,omitempty"`
	OutputPath  string    `json:"output_path,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Frames      int       `json:"frames,omitempty"`
	PushToS3    bool      `json:"push_to_s3,omitempty"`
	OutputURL   string    `json:"output_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

func toRecord(j *Job) jobRecord {
	c := j.Clone()
	return jobRecord{
		ID:          c.ID,
		Kind:        c.Kind,
		Status:      c.Status,
		Progress:    c.Progress,
		Error:       c.Error,
		InputPath:   c.InputPath,
		OwnsInput:   c.OwnsInput,
		SourceJobID: c.SourceJobID,
		SourceURL:   c.SourceURL,
		UseCookies:  c.UseCookies,
		Browser:     c.Browser,
		OutputPath:  c.OutputPath,
		Width:       c.Width,
		Height:      c.Height,
		Frames:      c.Frames,
		PushToS3:    c.PushToS3,
		OutputURL:   c.OutputURL,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		StartedAt:   c.StartedAt,
		CompletedAt: c.CompletedAt,
	}
}

func (rec jobRecord) toJob() *Job {
	return &Job{
		ID:          rec.ID,
		Kind:        rec.Kind,
		Status:      rec.Status,
		Progress:    rec.Progress,
		Error:       rec.Error,
		InputPath:   rec.InputPath,
		OwnsInput:   rec.OwnsInput,
		SourceJobID: rec.SourceJobID,
		SourceURL:   rec.SourceURL,
		UseCookies:  rec.UseCookies,
		Browser:     rec.Browser,
		OutputPath:  rec.OutputPath,
		Width:       rec.Width,
		Height:      rec.Height,
		Frames:      rec.Frames,
		PushToS3:    rec.PushToS3,
		OutputURL:   rec.OutputURL,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
	}
}
