// Package main provides convert169, which pads a video to 16:9 with black
// bars.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/maauso/widescreen/internal/media"
	"github.com/maauso/widescreen/internal/progress"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("convert169", flag.ContinueOnError)
	fs.SetOutput(stderr)
	ffmpegPath := fs.String("ffmpeg", "ffmpeg", "path to the ffmpeg binary")
	ffprobePath := fs.String("ffprobe", "ffprobe", "path to the ffprobe binary")
	codec := fs.String("codec", media.DefaultVideoCodec, "ffmpeg video encoder")
	tag := fs.String("tag", media.DefaultVideoTag, "container codec tag")
	verbose := fs.Bool("v", false, "log ffmpeg invocations to stderr")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(fs.Output(), "Convert video to 16:9 aspect ratio with black bars")
		_, _ = fmt.Fprintln(fs.Output(), "\nUsage: convert169 [flags] <input> <output>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 2
	}
	input, output := fs.Arg(0), fs.Arg(1)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	converter := media.NewConverter(
		media.NewFFmpegDecoder(*ffmpegPath, media.NewFFprobe(*ffprobePath)),
		media.NewFFmpegEncoder(*ffmpegPath, *codec, *tag),
		logger,
	)

	if _, err := converter.Convert(ctx, input, output, progress.NewConvertPrinter(stdout)); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "Conversion complete. Output saved to %s\n", output)
	return 0
}
