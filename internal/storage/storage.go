// Package storage manages the on-disk work area used by jobs and the
// optional S3 bucket finished videos are published to.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for job files and published outputs.
type Storage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp opens a file in the work area.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// JobDir returns a directory reserved for one job's outputs, creating it
	// if needed.
	JobDir(jobID string) (string, error)

	// Publish uploads the file at path under key and returns its URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	Publish(ctx context.Context, key, path string) (url string, err error)
}
