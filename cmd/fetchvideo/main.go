// Package main provides fetchvideo, which downloads a video in the best
// available quality and merges it into a single MP4.
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
	"slices"
	"strings"
	"syscall"

	"github.com/maauso/widescreen/internal/fetch"
	"github.com/maauso/widescreen/internal/progress"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	url       string
	outputDir string
	noCookies bool
	browser   string
	ytdlp     string
	install   bool
	verbose   bool
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("fetchvideo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.url, "url", "", "video URL to download")
	fs.StringVar(&opts.url, "u", "", "shorthand for -url")
	fs.StringVar(&opts.outputDir, "output", "", "output directory (default: current directory)")
	fs.StringVar(&opts.outputDir, "o", "", "shorthand for -output")
	fs.BoolVar(&opts.noCookies, "no-cookies", false, "disable browser cookie authentication")
	fs.StringVar(&opts.browser, "browser", "", "browser to read cookies from: "+strings.Join(fetch.Browsers, ", "))
	fs.StringVar(&opts.browser, "b", "", "shorthand for -browser")
	fs.StringVar(&opts.ytdlp, "yt-dlp", "", "path to the yt-dlp binary")
	fs.BoolVar(&opts.install, "install", false, "download yt-dlp and ffmpeg if missing")
	fs.BoolVar(&opts.verbose, "v", false, "log yt-dlp invocations to stderr")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(fs.Output(), "Download videos in best quality")
		_, _ = fmt.Fprintln(fs.Output(), "\nUsage: fetchvideo -u URL [-o DIR] [--no-cookies] [-b BROWSER]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.url == "" || fs.NArg() > 0 {
		fs.Usage()
		return 2
	}
	if opts.browser != "" && !slices.Contains(fetch.Browsers, opts.browser) {
		_, _ = fmt.Fprintf(stderr, "invalid browser %q\n", opts.browser)
		fs.Usage()
		return 2
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	tools, err := fetch.Setup(ctx, fetch.SetupOptions{
		Executable:    opts.ytdlp,
		Install:       opts.install,
		InstallFFmpeg: opts.install,
	}, logger)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	downloader := fetch.New(
		fetch.WithExecutable(tools.YtDlp),
		fetch.WithLogger(logger),
	)

	printer := progress.NewFetchPrinter(stdout)
	path, err := downloader.Download(ctx, fetch.Request{
		URL:        opts.url,
		OutputDir:  opts.outputDir,
		UseCookies: !opts.noCookies,
		Browser:    opts.browser,
	}, printer)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "\nError: %v\n\n", err)
		fetch.WriteTroubleshooting(stderr)
		return 1
	}

	printer.Done(path)
	return 0
}
