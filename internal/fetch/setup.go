package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lrstanley/go-ytdlp"
)

// SetupOptions controls how the external tools are resolved.
type SetupOptions struct {
	// Executable is an explicit yt-dlp path. It wins over Install.
	Executable string
	// Install downloads yt-dlp into the go-ytdlp cache when it is missing.
	Install bool
	// InstallFFmpeg also provisions ffmpeg and ffprobe, which yt-dlp needs
	// for merging and the converter needs for decoding.
	InstallFFmpeg bool
}

// Tools holds the resolved executables. Empty fields mean "find on PATH".
type Tools struct {
	YtDlp   string
	FFmpeg  string
	FFprobe string
}

var (
	setupOnce  sync.Once
	setupTools Tools
	setupErr   error
)

// Setup resolves the tool executables once per process. Later calls return
// the first result regardless of their options.
func Setup(ctx context.Context, opts SetupOptions, logger *slog.Logger) (Tools, error) {
	setupOnce.Do(func() {
		if logger == nil {
			logger = slog.Default()
		}
		setupTools, setupErr = resolveTools(ctx, opts, logger)
	})
	return setupTools, setupErr
}

func resolveTools(ctx context.Context, opts SetupOptions, logger *slog.Logger) (Tools, error) {
	var tools Tools

	switch {
	case opts.Executable != "":
		tools.YtDlp = opts.Executable
	case opts.Install:
		resolved, err := ytdlp.Install(ctx, nil)
		if err != nil {
			return Tools{}, fmt.Errorf("install yt-dlp: %w", err)
		}
		tools.YtDlp = resolved.Executable
		logger.Info("yt-dlp ready",
			slog.String("executable", resolved.Executable),
			slog.String("version", resolved.Version),
		)
	}

	if opts.InstallFFmpeg {
		ffmpeg, err := ytdlp.InstallFFmpeg(ctx, nil)
		if err != nil {
			return Tools{}, fmt.Errorf("install ffmpeg: %w", err)
		}
		ffprobe, err := ytdlp.InstallFFprobe(ctx, nil)
		if err != nil {
			return Tools{}, fmt.Errorf("install ffprobe: %w", err)
		}
		tools.FFmpeg = ffmpeg.Executable
		tools.FFprobe = ffprobe.Executable
		logger.Info("ffmpeg ready",
			slog.String("ffmpeg", tools.FFmpeg),
			slog.String("ffprobe", tools.FFprobe),
		)
	}

	return tools, nil
}
