package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Errors returned by storage implementations.
var (
	// ErrS3NotConfigured is returned when S3 operations are attempted
	// without proper configuration.
	ErrS3NotConfigured = errors.New("S3 storage is not configured")
	// ErrInvalidJobID is returned when a job ID cannot be used as a directory name.
	ErrInvalidJobID = errors.New("invalid job ID")
)

const jobsSubdir = "jobs"

// LocalStorage implements Storage on local disk. Uploaded inputs live
// directly in the work directory and job outputs under jobs/<id>.
// Publishing requires S3Storage.
type LocalStorage struct {
	workDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// If workDir is empty, a "widescreen" directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(workDir string) (*LocalStorage, error) {
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "widescreen")
	}

	if err := os.MkdirAll(workDir, 0750); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	return &LocalStorage{workDir: workDir}, nil
}

// WorkDir returns the work directory path.
func (s *LocalStorage) WorkDir() string {
	return s.workDir
}

// SaveTemp saves data to a file in the work directory and returns its path.
// The name is used as a base for the filename with a unique suffix; its
// extension, if any, is kept so ffmpeg can detect the container.
func (s *LocalStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(filepath.Base(name), ext)

	f, err := os.CreateTemp(s.workDir, base+"_*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return fileName, nil
}

// LoadTemp opens a file and returns a reader.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) LoadTemp(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}

	return f, nil
}

// CleanupTemp removes the specified files.
// It continues cleanup even if some files fail to delete,
// returning the first error encountered.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// JobDir returns <workDir>/jobs/<jobID>, creating it if needed.
func (s *LocalStorage) JobDir(jobID string) (string, error) {
	if jobID == "" || jobID != filepath.Base(jobID) || jobID == "." || jobID == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}

	dir := filepath.Join(s.workDir, jobsSubdir, jobID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create job directory: %w", err)
	}
	return dir, nil
}

// Publish is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _, _ string) (string, error) {
	return "", ErrS3NotConfigured
}

var _ Storage = (*LocalStorage)(nil)
