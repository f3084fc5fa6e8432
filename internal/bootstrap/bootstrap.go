// Package bootstrap provides dependency initialization for the widescreen server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maauso/widescreen/internal/config"
	"github.com/maauso/widescreen/internal/fetch"
	"github.com/maauso/widescreen/internal/job"
	"github.com/maauso/widescreen/internal/media"
	"github.com/maauso/widescreen/internal/metrics"
	"github.com/maauso/widescreen/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	JobService *job.Service
	Metrics    *metrics.Metrics

	closers []func() error
}

// Close releases resources opened by NewDependencies.
func (d *Dependencies) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Metrics: metrics.New()}

	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize job repository
	repo, err := initRepository(ctx, cfg, logger, deps)
	if err != nil {
		return nil, err
	}

	// Resolve external tools
	tools, err := fetch.Setup(ctx, fetch.SetupOptions{
		Executable: cfg.YtdlpPath,
		Install:    cfg.YtdlpInstall,
	}, logger)
	if err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("set up yt-dlp: %w", err)
	}
	ffmpegPath, ffprobePath := cfg.FFmpegPath, cfg.FFprobePath
	if tools.FFmpeg != "" {
		ffmpegPath, ffprobePath = tools.FFmpeg, tools.FFprobe
	}

	// Initialize converter and downloader
	converter := media.NewConverter(
		media.NewFFmpegDecoder(ffmpegPath, media.NewFFprobe(ffprobePath)),
		media.NewFFmpegEncoder(ffmpegPath, cfg.VideoCodec, cfg.VideoTag),
		logger,
	)
	downloader := fetch.New(
		fetch.WithExecutable(tools.YtDlp),
		fetch.WithLogger(logger),
	)

	deps.JobService = job.NewService(repo, store, converter, downloader, logger,
		job.WithMaxConcurrentJobs(cfg.MaxConcurrentJobs),
		job.WithRecorder(deps.Metrics),
	)

	// Jobs from a previous process can never finish
	if _, err := deps.JobService.RecoverInterrupted(ctx); err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("recover interrupted jobs: %w", err)
	}

	return deps, nil
}

// initRepository opens SQLite when DB_PATH is set and falls back to memory.
func initRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Dependencies) (job.Repository, error) {
	if !cfg.SQLiteEnabled() {
		logger.Info("in-memory job repository configured")
		return job.NewMemoryRepository(), nil
	}

	repo, err := job.NewSQLiteRepository(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open job database: %w", err)
	}
	deps.closers = append(deps.closers, repo.Close)
	logger.Info("SQLite job repository configured",
		slog.String("db_path", cfg.DBPath),
	)
	return repo, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.WorkDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("endpoint", cfg.S3Endpoint),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("work_dir", cfg.WorkDir),
	)
	return localStore, nil
}
