// Package fetch downloads remote videos with yt-dlp, selecting the best
// video and audio streams and merging them into a single MP4.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lrstanley/go-ytdlp"
)

// Errors returned by the Downloader.
var (
	// ErrInvalidRequest is returned when a Request fails validation.
	ErrInvalidRequest = errors.New("invalid fetch request")
	// ErrInspect is returned when video metadata cannot be extracted.
	ErrInspect = errors.New("fetch video information")
	// ErrDownload is returned when the download or merge fails.
	ErrDownload = errors.New("download video")
)

// yt-dlp options for best-quality MP4 output.
const (
	FormatSelector    = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	FormatSort        = "res:2160,res:1440,res:1080,res:720"
	OutputTemplate    = "%(title)s.%(ext)s"
	MergeOutputFormat = "mp4"
)

// Browsers lists the browsers cookies can be read from.
var Browsers = []string{"chrome", "firefox", "safari", "edge", "opera"}

// Request describes one video to fetch.
type Request struct {
	URL        string `json:"url" validate:"required,url"`
	OutputDir  string `json:"output_dir,omitempty"`
	UseCookies bool   `json:"use_cookies"`
	Browser    string `json:"browser,omitempty" validate:"omitempty,oneof=chrome firefox safari edge opera"`
}

// VideoInfo is the metadata reported before a download starts.
type VideoInfo struct {
	Title string
	// Duration is zero for live streams and sites that don't report it.
	Duration time.Duration
	// BestHeight is the height of the best video format, 0 if unknown.
	BestHeight int
	// ApproxSize is the best video format's size in bytes, 0 if unknown.
	ApproxSize int64
	// Filename is the path yt-dlp plans to write before merging.
	Filename string
}

// OutputPath returns where the merged MP4 ends up.
func (i VideoInfo) OutputPath(dir string) string {
	if i.Filename != "" {
		return strings.TrimSuffix(i.Filename, filepath.Ext(i.Filename)) + "." + MergeOutputFormat
	}
	title := i.Title
	if title == "" {
		title = "video"
	}
	return filepath.Join(dir, title+"."+MergeOutputFormat)
}

// Observer receives download progress. Implementations must not block.
type Observer interface {
	// Details is called once metadata is known, before downloading.
	Details(info VideoInfo)
	// Downloading reports bytes received for the current stream.
	Downloading(filename string, downloaded, total int64)
	// Merging is called once when post-processing starts.
	Merging()
}

// NopObserver ignores all events.
type NopObserver struct{}

// Details implements Observer.
func (NopObserver) Details(VideoInfo) {}

// Downloading implements Observer.
func (NopObserver) Downloading(string, int64, int64) {}

// Merging implements Observer.
func (NopObserver) Merging() {}

// Option configures a Downloader.
type Option func(*Downloader)

// WithExecutable sets the yt-dlp binary. By default go-ytdlp resolves it.
func WithExecutable(path string) Option {
	return func(d *Downloader) {
		d.executable = path
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithProgressInterval sets how often download progress is reported.
func WithProgressInterval(interval time.Duration) Option {
	return func(d *Downloader) {
		if interval > 0 {
			d.progressInterval = interval
		}
	}
}

// Downloader fetches videos with yt-dlp.
type Downloader struct {
	executable       string
	logger           *slog.Logger
	validate         *validator.Validate
	progressInterval time.Duration
	goos             string
}

// New creates a Downloader.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		logger:           slog.Default(),
		validate:         validator.New(),
		progressInterval: 250 * time.Millisecond,
		goos:             runtime.GOOS,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DefaultBrowser returns the browser cookies are read from when none is
// given: Safari on macOS, Chrome everywhere else.
func DefaultBrowser(goos string) string {
	if goos == "darwin" {
		return "safari"
	}
	return "chrome"
}

// Normalize validates req and fills in defaults: the current directory as
// OutputDir and the platform browser when cookies are enabled.
func (d *Downloader) Normalize(req Request) (Request, error) {
	if err := d.validate.Struct(req); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if req.OutputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Request{}, fmt.Errorf("resolve working directory: %w", err)
		}
		req.OutputDir = wd
	}

	if req.UseCookies && req.Browser == "" {
		req.Browser = DefaultBrowser(d.goos)
	}
	if !req.UseCookies {
		req.Browser = ""
	}

	return req, nil
}

// command builds the yt-dlp invocation shared by Inspect and Download.
func (d *Downloader) command(req Request) *ytdlp.Command {
	cmd := ytdlp.New().
		Format(FormatSelector).
		FormatSort(FormatSort).
		MergeOutputFormat(MergeOutputFormat).
		Output(filepath.Join(req.OutputDir, OutputTemplate)).
		VideoMultistreams().
		AudioMultistreams().
		PreferFreeFormats().
		RecodeVideo(MergeOutputFormat)

	if req.Browser != "" {
		cmd = cmd.CookiesFromBrowser(req.Browser)
	}
	if d.executable != "" {
		cmd = cmd.SetExecutable(d.executable)
	}
	return cmd
}

// Inspect extracts metadata for req.URL without downloading.
func (d *Downloader) Inspect(ctx context.Context, req Request) (VideoInfo, error) {
	req, err := d.Normalize(req)
	if err != nil {
		return VideoInfo{}, err
	}
	return d.inspect(ctx, req)
}

func (d *Downloader) inspect(ctx context.Context, req Request) (VideoInfo, error) {
	d.logger.Debug("fetching video information",
		slog.String("url", req.URL),
		slog.String("browser", req.Browser),
	)

	res, err := d.command(req).
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, req.URL)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("%w: %w", ErrInspect, err)
	}

	info, err := parseInfo([]byte(res.Stdout))
	if err != nil {
		return VideoInfo{}, fmt.Errorf("%w: %w", ErrInspect, err)
	}
	return info, nil
}

// Download fetches req.URL in the best available quality and returns the
// path of the merged MP4. The output directory is created if missing.
func (d *Downloader) Download(ctx context.Context, req Request, obs Observer) (string, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	req, err := d.Normalize(req)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(req.OutputDir, 0750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	info, err := d.inspect(ctx, req)
	if err != nil {
		return "", err
	}
	obs.Details(info)

	output := info.OutputPath(req.OutputDir)
	d.logger.Info("starting download",
		slog.String("url", req.URL),
		slog.String("title", info.Title),
		slog.Int("best_height", info.BestHeight),
		slog.String("output", output),
	)

	start := time.Now()
	_, err = d.command(req).
		ProgressFunc(d.progressInterval, progressHandler(obs)).
		Run(ctx, req.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownload, err)
	}

	d.logger.Info("download completed",
		slog.String("output", output),
		slog.Duration("elapsed", time.Since(start)),
	)
	return output, nil
}

// progressHandler adapts yt-dlp progress updates to obs. Merging is
// reported at most once per download.
func progressHandler(obs Observer) func(ytdlp.ProgressUpdate) {
	var merging sync.Once
	return func(u ytdlp.ProgressUpdate) {
		switch u.Status {
		case ytdlp.ProgressStatusDownloading:
			obs.Downloading(u.Filename, int64(u.DownloadedBytes), int64(u.TotalBytes))
		case ytdlp.ProgressStatusPostProcessing:
			merging.Do(obs.Merging)
		}
	}
}

type ytdlpFormat struct {
	FormatID string  `json:"format_id"`
	VCodec   string  `json:"vcodec"`
	Height   int     `json:"height"`
	Filesize float64 `json:"filesize"`
}

type ytdlpInfo struct {
	Title           string        `json:"title"`
	Duration        float64       `json:"duration"`
	Filename        string        `json:"filename"`
	PlannedFilename string        `json:"_filename"`
	Formats         []ytdlpFormat `json:"formats"`
}

// parseInfo extracts VideoInfo from yt-dlp --dump-single-json output.
func parseInfo(data []byte) (VideoInfo, error) {
	var raw ytdlpInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return VideoInfo{}, fmt.Errorf("parse yt-dlp output: %w", err)
	}

	info := VideoInfo{
		Title:    raw.Title,
		Duration: time.Duration(raw.Duration * float64(time.Second)),
		Filename: raw.Filename,
	}
	if info.Title == "" {
		info.Title = "video"
	}
	if info.Filename == "" {
		info.Filename = raw.PlannedFilename
	}

	if best, ok := bestVideoFormat(raw.Formats); ok {
		info.BestHeight = best.Height
		info.ApproxSize = int64(best.Filesize)
	}
	return info, nil
}

// bestVideoFormat returns the video format with the greatest height,
// breaking ties by file size. Audio-only formats are skipped.
func bestVideoFormat(formats []ytdlpFormat) (ytdlpFormat, bool) {
	var best ytdlpFormat
	found := false
	for _, f := range formats {
		if f.VCodec == "none" {
			continue
		}
		if !found || f.Height > best.Height || (f.Height == best.Height && f.Filesize > best.Filesize) {
			best = f
			found = true
		}
	}
	return best, found
}
