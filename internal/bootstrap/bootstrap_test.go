package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/widescreen/internal/config"
	"github.com/maauso/widescreen/internal/job"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:              8080,
		WorkDir:           t.TempDir(),
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",
		YtdlpPath:         "yt-dlp",
		MaxConcurrentJobs: 1,
		RateLimitRPS:      1,
		RateLimitBurst:    1,
		LogFormat:         "text",
		LogLevel:          "error",
	}
}

func TestNewDependencies_Memory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, err := NewDependencies(context.Background(), testConfig(t), logger)
	require.NoError(t, err)
	defer func() { assert.NoError(t, deps.Close()) }()

	assert.NotNil(t, deps.JobService)
	assert.NotNil(t, deps.Metrics)

	jobs, err := deps.JobService.ListJobs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestNewDependencies_SQLiteRecoversInterruptedJobs(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(t)
	cfg.DBPath = filepath.Join(t.TempDir(), "jobs.db")

	// A job left running by a previous process.
	repo, err := job.NewSQLiteRepository(ctx, cfg.DBPath)
	require.NoError(t, err)
	stale := job.New(job.KindFetch)
	require.NoError(t, stale.Start())
	require.NoError(t, repo.Save(ctx, stale))
	require.NoError(t, repo.Close())

	deps, err := NewDependencies(ctx, cfg, logger)
	require.NoError(t, err)
	defer func() { assert.NoError(t, deps.Close()) }()

	recovered, err := deps.JobService.GetJob(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, recovered.Status)
	assert.Equal(t, "interrupted by restart", recovered.Error)
}

func TestNewDependencies_S3(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(t)
	cfg.S3Bucket = "videos"
	cfg.S3Region = "us-east-1"
	cfg.S3Endpoint = "http://localhost:9000"
	cfg.AWSAccessKeyID = "key"
	cfg.AWSSecretAccessKey = "secret"

	deps, err := NewDependencies(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.NoError(t, deps.Close())
}
