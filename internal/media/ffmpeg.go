package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// Default encoding used by FFmpegEncoder: MPEG-4 Part 2 tagged as mp4v.
const (
	DefaultVideoCodec = "mpeg4"
	DefaultVideoTag   = "mp4v"
)

// FFmpegDecoder opens video files as raw RGB24 frame sources using the
// ffmpeg CLI. Metadata comes from ffprobe.
type FFmpegDecoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	probe      *FFprobe
}

// NewFFmpegDecoder creates a new FFmpegDecoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
// If probe is nil, an FFprobe using the default binary is created.
func NewFFmpegDecoder(ffmpegPath string, probe *FFprobe) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if probe == nil {
		probe = NewFFprobe("")
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath, probe: probe}
}

// OpenSource probes path and starts an ffmpeg process decoding it to raw
// RGB24 frames on stdout. Frames are rotated into display orientation and
// passed through without frame rate conversion, so variable frame rate
// input yields every decoded frame exactly once.
func (d *FFmpegDecoder) OpenSource(ctx context.Context, path string) (Source, error) {
	meta, err := d.probe.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}

	args := []string{
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-map", "0:v:0",            // First video stream only
		"-fps_mode", "passthrough", // One output frame per decoded frame
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	}

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdout pipe: %w", err)
	}
	s := &ffmpegSource{
		cmd:       cmd,
		args:      args,
		meta:      meta,
		frameSize: meta.Width * meta.Height * BytesPerPixel,
		reader:    bufio.NewReaderSize(stdout, 1<<20),
	}
	cmd.Stderr = &s.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start decoder: %w", err)
	}

	return s, nil
}

// ffmpegSource reads fixed-size frames from a running ffmpeg decoder.
type ffmpegSource struct {
	cmd       *exec.Cmd
	args      []string
	meta      Metadata
	frameSize int
	reader    *bufio.Reader
	stderr    bytes.Buffer

	once    sync.Once
	waitErr error
}

func (s *ffmpegSource) Metadata() Metadata {
	return s.meta
}

func (s *ffmpegSource) Next() (Frame, error) {
	buf := make([]byte, s.frameSize)
	_, err := io.ReadFull(s.reader, buf)
	switch {
	case err == nil:
		return Frame{Width: s.meta.Width, Height: s.meta.Height, Pix: buf}, nil
	case errors.Is(err, io.EOF):
		// Clean end of stream, unless ffmpeg itself failed.
		if werr := s.wait(); werr != nil {
			return Frame{}, werr
		}
		return Frame{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		if werr := s.wait(); werr != nil {
			return Frame{}, werr
		}
		return Frame{}, fmt.Errorf("%w: truncated frame", ErrFrameSize)
	default:
		return Frame{}, fmt.Errorf("read decoder output: %w", err)
	}
}

// Close stops the decoder if it is still running and reaps the process.
func (s *ffmpegSource) Close() error {
	s.once.Do(func() {
		// Still running: the caller stopped early, so the exit status is not
		// meaningful.
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	})
	return nil
}

// wait reaps ffmpeg after its output was drained.
func (s *ffmpegSource) wait() error {
	s.once.Do(func() {
		if err := s.cmd.Wait(); err != nil {
			s.waitErr = &FFmpegError{Args: s.args, Stderr: s.stderr.String(), Err: err}
		}
	})
	return s.waitErr
}

// FFmpegEncoder opens ffmpeg encoders that read raw RGB24 frames on stdin.
type FFmpegEncoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	codec      string
	tag        string
}

// NewFFmpegEncoder creates a new FFmpegEncoder.
// Empty arguments fall back to "ffmpeg", DefaultVideoCodec and DefaultVideoTag.
func NewFFmpegEncoder(ffmpegPath, codec, tag string) *FFmpegEncoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if codec == "" {
		codec = DefaultVideoCodec
	}
	if tag == "" {
		tag = DefaultVideoTag
	}
	return &FFmpegEncoder{ffmpegPath: ffmpegPath, codec: codec, tag: tag}
}

// OpenSink starts an ffmpeg process encoding spec-sized frames to path.
func (e *FFmpegEncoder) OpenSink(ctx context.Context, path string, spec SinkSpec) (Sink, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("%w: sink %dx%d", ErrFrameSize, spec.Width, spec.Height)
	}
	args := e.args(path, spec)

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdin pipe: %w", err)
	}
	s := &ffmpegSink{
		cmd:   cmd,
		args:  args,
		spec:  spec,
		stdin: stdin,
	}
	cmd.Stderr = &s.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start encoder: %w", err)
	}

	return s, nil
}

// evenSizeCodecs reject yuv420p frames with an odd width or height.
var evenSizeCodecs = map[string]bool{
	"libx264":    true,
	"libx265":    true,
	"h264_nvenc": true,
	"hevc_nvenc": true,
}

// args builds the encoder command line. mpeg4 encodes odd sizes such as
// 853x480 as they are; codecs in evenSizeCodecs get one extra black
// column or row on the right or bottom instead of failing.
func (e *FFmpegEncoder) args(path string, spec SinkSpec) []string {
	rate := spec.FrameRate
	if rate == "" {
		rate = DefaultFrameRate
	}

	args := []string{
		"-y", // Overwrite output file without asking
		"-v", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", strconv.Itoa(spec.Width) + "x" + strconv.Itoa(spec.Height),
		"-r", rate,
		"-i", "pipe:0",
		"-an",
	}
	if evenSizeCodecs[e.codec] && (spec.Width%2 != 0 || spec.Height%2 != 0) {
		args = append(args, "-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2")
	}
	return append(args,
		"-c:v", e.codec,
		"-tag:v", e.tag,
		"-pix_fmt", "yuv420p",
		path,
	)
}

// ffmpegSink writes frames to a running ffmpeg encoder.
type ffmpegSink struct {
	cmd    *exec.Cmd
	args   []string
	spec   SinkSpec
	stdin  io.WriteCloser
	stderr bytes.Buffer

	once     sync.Once
	closeErr error
}

func (s *ffmpegSink) WriteFrame(f Frame) error {
	if f.Width != s.spec.Width || f.Height != s.spec.Height {
		return fmt.Errorf("%w: got %dx%d, sink expects %dx%d",
			ErrFrameSize, f.Width, f.Height, s.spec.Width, s.spec.Height)
	}
	if err := f.Validate(); err != nil {
		return err
	}

	if _, err := s.stdin.Write(f.Pix); err != nil {
		// The encoder died; its stderr explains why.
		if cerr := s.Close(); cerr != nil {
			return cerr
		}
		return fmt.Errorf("write to encoder: %w", err)
	}
	return nil
}

// Close flushes stdin and waits for ffmpeg to finalize the file.
func (s *ffmpegSink) Close() error {
	s.once.Do(func() {
		_ = s.stdin.Close()
		if err := s.cmd.Wait(); err != nil {
			s.closeErr = &FFmpegError{Args: s.args, Stderr: s.stderr.String(), Err: err}
		}
	})
	return s.closeErr
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Verify interface implementation at compile time.
var (
	_ SourceOpener = (*FFmpegDecoder)(nil)
	_ SinkOpener   = (*FFmpegEncoder)(nil)
)
