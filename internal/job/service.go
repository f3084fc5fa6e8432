package job

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/maauso/widescreen/internal/aspect"
	"github.com/maauso/widescreen/internal/fetch"
	"github.com/maauso/widescreen/internal/media"
	"github.com/maauso/widescreen/internal/storage"
)

// Errors returned by the Service.
var (
	// ErrInvalidInput is returned when a job request is malformed.
	ErrInvalidInput = errors.New("invalid job input")
	// ErrSourceNotReady is returned when a convert job references a job
	// that has not produced a video.
	ErrSourceNotReady = errors.New("source job has no output")
	// ErrJobNotFinished is returned when an operation needs a terminal job.
	ErrJobNotFinished = errors.New("job has not finished")
)

const (
	// ConvertOutputName is the file a convert job writes in its job dir.
	ConvertOutputName = "output_169.mp4"
	// publishPrefix is the S3 key prefix for published videos.
	publishPrefix = "videos/"
	// fetchDownloadShare is the progress reached when a download finishes;
	// the merge covers the rest.
	fetchDownloadShare = 90
)

// Converter pads a local video to 16:9.
type Converter interface {
	Convert(ctx context.Context, input, output string, obs media.Observer) (media.Result, error)
}

// Fetcher downloads a remote video and returns the local path.
type Fetcher interface {
	Download(ctx context.Context, req fetch.Request, obs fetch.Observer) (string, error)
}

// Recorder receives job lifecycle measurements.
type Recorder interface {
	JobStarted(kind string)
	JobFinished(kind, status string, elapsed time.Duration)
	FramesComposited(n int)
}

type nopRecorder struct{}

func (nopRecorder) JobStarted(string)                         {}
func (nopRecorder) JobFinished(string, string, time.Duration) {}
func (nopRecorder) FramesComposited(int)                      {}

// ConvertInput contains the parameters of a convert job. Exactly one of
// VideoBase64 and SourceJobID must be set.
type ConvertInput struct {
	// VideoBase64 is an uploaded video.
	VideoBase64 string
	// SourceJobID reuses the output of a completed job.
	SourceJobID string
	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool
}

// FetchInput contains the parameters of a fetch job.
type FetchInput struct {
	URL        string
	UseCookies bool
	Browser    string
	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMaxConcurrentJobs limits how many jobs run at once.
func WithMaxConcurrentJobs(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.sem = make(chan struct{}, n)
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// Service creates jobs and runs them against the converter and fetcher.
type Service struct {
	repo      Repository
	storage   storage.Storage
	converter Converter
	fetcher   Fetcher
	recorder  Recorder
	logger    *slog.Logger
	sem       chan struct{}
}

// NewService creates a Service. By default two jobs run at once.
func NewService(repo Repository, store storage.Storage, converter Converter, fetcher Fetcher, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:      repo,
		storage:   store,
		converter: converter,
		fetcher:   fetcher,
		recorder:  nopRecorder{},
		logger:    logger,
		sem:       make(chan struct{}, 2),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateConvertJob validates input, stages the video and persists a
// queued convert job.
func (s *Service) CreateConvertJob(ctx context.Context, input ConvertInput) (*Job, error) {
	hasUpload := input.VideoBase64 != ""
	hasSource := input.SourceJobID != ""
	if hasUpload == hasSource {
		return nil, fmt.Errorf("%w: exactly one of video_base64 and source_job_id is required", ErrInvalidInput)
	}

	job := New(KindConvert)
	job.PushToS3 = input.PushToS3

	if hasUpload {
		data, err := base64.StdEncoding.DecodeString(input.VideoBase64)
		if err != nil {
			return nil, fmt.Errorf("%w: decode video: %w", ErrInvalidInput, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty video", ErrInvalidInput)
		}
		path, err := s.storage.SaveTemp(ctx, "input.mp4", bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("save upload: %w", err)
		}
		job.InputPath = path
		job.OwnsInput = true
	} else {
		source, err := s.repo.FindByID(ctx, input.SourceJobID)
		if err != nil {
			return nil, fmt.Errorf("source job %s: %w", input.SourceJobID, err)
		}
		if source.Status != StatusCompleted || source.OutputPath == "" {
			return nil, fmt.Errorf("%w: %s is %s", ErrSourceNotReady, source.ID, source.Status)
		}
		job.SourceJobID = source.ID
		job.InputPath = source.OutputPath
	}

	s.logger.Info("creating convert job",
		slog.String("job_id", job.ID),
		slog.String("source_job_id", job.SourceJobID),
		slog.Bool("push_to_s3", job.PushToS3),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		s.cleanupInput(ctx, job)
		return nil, err
	}
	return job, nil
}

// CreateFetchJob persists a queued fetch job.
func (s *Service) CreateFetchJob(ctx context.Context, input FetchInput) (*Job, error) {
	if input.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}

	job := New(KindFetch)
	job.SourceURL = input.URL
	job.UseCookies = input.UseCookies
	job.Browser = input.Browser
	job.PushToS3 = input.PushToS3

	s.logger.Info("creating fetch job",
		slog.String("job_id", job.ID),
		slog.String("url", input.URL),
		slog.Bool("use_cookies", input.UseCookies),
		slog.Bool("push_to_s3", input.PushToS3),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return job, nil
}

// GetJob retrieves a job by ID.
func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all jobs, oldest first.
func (s *Service) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// DeleteJobVideo removes a finished job's local output file and clears
// OutputPath. A published S3 copy is kept. Deleting twice is not an error.
func (s *Service) DeleteJobVideo(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !job.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobNotFinished, job.ID, job.Status)
	}
	if job.OutputPath == "" {
		return nil
	}

	if err := s.storage.CleanupTemp(ctx, []string{job.OutputPath}); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	s.logger.Info("deleted job video",
		slog.String("job_id", job.ID),
		slog.String("path", job.OutputPath),
	)

	job.SetOutput("", job.OutputURL)
	return s.repo.Save(ctx, job)
}

// Run executes a queued job and records its terminal state. It blocks
// while MaxConcurrentJobs other jobs are running. The returned error is
// the reason the job failed.
func (s *Service) Run(ctx context.Context, jobID string) error {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return err
	}

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		if job.Fail(ctx.Err().Error()) == nil {
			s.save(ctx, job)
			s.cleanupInput(ctx, job)
		}
		return ctx.Err()
	}

	if err := job.Start(); err != nil {
		return fmt.Errorf("start job %s: %w", job.ID, err)
	}
	defer s.cleanupInput(ctx, job)
	s.save(ctx, job)

	kind := string(job.Kind)
	s.recorder.JobStarted(kind)
	started := time.Now()

	s.logger.Info("job started",
		slog.String("job_id", job.ID),
		slog.String("kind", kind),
	)

	runErr := s.execute(ctx, job)
	if runErr != nil {
		_ = job.Fail(runErr.Error())
		s.logger.Error("job failed",
			slog.String("job_id", job.ID),
			slog.String("kind", kind),
			slog.String("error", runErr.Error()),
		)
	} else {
		_ = job.Complete()
		s.logger.Info("job completed",
			slog.String("job_id", job.ID),
			slog.String("kind", kind),
			slog.String("output", job.OutputPath),
			slog.Duration("elapsed", time.Since(started)),
		)
	}
	s.save(ctx, job)
	s.recorder.JobFinished(kind, string(job.GetStatus()), time.Since(started))

	return runErr
}

// RecoverInterrupted fails jobs left queued or running by a previous
// process. It returns how many jobs were failed.
func (s *Service) RecoverInterrupted(ctx context.Context) (int, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list jobs: %w", err)
	}

	failed := 0
	for _, job := range jobs {
		if job.IsTerminal() {
			continue
		}
		if err := job.Fail("interrupted by restart"); err != nil {
			continue
		}
		if err := s.repo.Save(ctx, job); err != nil {
			return failed, fmt.Errorf("save job %s: %w", job.ID, err)
		}
		s.cleanupInput(ctx, job)
		failed++
	}
	if failed > 0 {
		s.logger.Warn("failed interrupted jobs", slog.Int("count", failed))
	}
	return failed, nil
}

func (s *Service) execute(ctx context.Context, job *Job) error {
	var (
		output string
		err    error
	)
	switch job.Kind {
	case KindConvert:
		output, err = s.convert(ctx, job)
	case KindFetch:
		output, err = s.fetch(ctx, job)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, job.Kind)
	}
	if err != nil {
		return err
	}

	var url string
	if job.PushToS3 {
		url, err = s.storage.Publish(ctx, publishPrefix+job.ID+".mp4", output)
		if err != nil {
			return fmt.Errorf("publish video: %w", err)
		}
	}
	job.SetOutput(output, url)
	return nil
}

func (s *Service) convert(ctx context.Context, job *Job) (string, error) {
	dir, err := s.storage.JobDir(job.ID)
	if err != nil {
		return "", err
	}
	output := filepath.Join(dir, ConvertOutputName)

	res, err := s.converter.Convert(ctx, job.InputPath, output, &convertObserver{service: s, ctx: ctx, job: job})
	s.recorder.FramesComposited(res.Frames)
	if err != nil {
		return "", err
	}
	job.SetConversion(res.Frames, res.Layout.Width, res.Layout.Height)
	return output, nil
}

func (s *Service) fetch(ctx context.Context, job *Job) (string, error) {
	dir, err := s.storage.JobDir(job.ID)
	if err != nil {
		return "", err
	}
	req := fetch.Request{
		URL:        job.SourceURL,
		OutputDir:  dir,
		UseCookies: job.UseCookies,
		Browser:    job.Browser,
	}
	return s.fetcher.Download(ctx, req, &fetchObserver{service: s, ctx: ctx, job: job})
}

// save persists job state. Failures are logged; the in-memory job stays
// authoritative for the running goroutine.
func (s *Service) save(ctx context.Context, job *Job) {
	if err := s.repo.Save(context.WithoutCancel(ctx), job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) cleanupInput(ctx context.Context, job *Job) {
	if !job.OwnsInput || job.InputPath == "" {
		return
	}
	if err := s.storage.CleanupTemp(context.WithoutCancel(ctx), []string{job.InputPath}); err != nil {
		s.logger.Warn("failed to remove uploaded input",
			slog.String("job_id", job.ID),
			slog.String("path", job.InputPath),
			slog.String("error", err.Error()),
		)
	}
}

// convertObserver maps compositor progress onto the job. Progress stays
// below 100 until the encoder has finalized the file.
type convertObserver struct {
	service *Service
	ctx     context.Context
	job     *Job
}

func (o *convertObserver) Started(layout aspect.Layout, meta media.Metadata) {
	o.job.SetConversion(0, layout.Width, layout.Height)
	o.service.logger.Debug("compositing",
		slog.String("job_id", o.job.ID),
		slog.String("layout", layout.String()),
		slog.Int("reported_frames", meta.FrameCount),
	)
}

func (o *convertObserver) Progress(processed, total int) {
	o.job.UpdateProgress(min(int(media.Fraction(processed, total)*100), 99))
	o.service.save(o.ctx, o.job)
}

func (o *convertObserver) Finished(int) {}

// fetchObserver maps download bytes onto the first 90 percent. The job is
// saved whenever the percentage grows.
type fetchObserver struct {
	service *Service
	ctx     context.Context
	job     *Job
	last    int
}

func (o *fetchObserver) Details(info fetch.VideoInfo) {
	o.service.logger.Info("fetching video",
		slog.String("job_id", o.job.ID),
		slog.String("title", info.Title),
		slog.Int("best_height", info.BestHeight),
	)
}

func (o *fetchObserver) Downloading(_ string, downloaded, total int64) {
	if total <= 0 {
		return
	}
	p := int(min(downloaded*fetchDownloadShare/total, fetchDownloadShare))
	if p <= o.last {
		return
	}
	o.last = p
	o.job.UpdateProgress(p)
	o.service.save(o.ctx, o.job)
}

func (o *fetchObserver) Merging() {
	o.job.UpdateProgress(fetchDownloadShare)
	o.service.save(o.ctx, o.job)
}
