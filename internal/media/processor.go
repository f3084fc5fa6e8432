// Package media provides the frame model, the 16:9 canvas compositor and
// the ffmpeg-backed frame sources and sinks it runs against.
package media

import (
	"context"
	"errors"
	"fmt"
)

// BytesPerPixel is the size of one packed RGB24 pixel.
const BytesPerPixel = 3

// Static errors for media operations.
var (
	// ErrOpenSource is returned when the input video cannot be opened.
	ErrOpenSource = errors.New("could not open video source")
	// ErrFrameSize is returned when a frame does not match its declared dimensions.
	ErrFrameSize = errors.New("frame size mismatch")
	// ErrNoVideoStream is returned when a file has no decodable video stream.
	ErrNoVideoStream = errors.New("no video stream found")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
)

// Frame is a packed RGB24 picture, row-major with a stride of Width*3.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a black frame.
func NewFrame(width, height int) Frame {
	return Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// Stride returns the number of bytes per row.
func (f Frame) Stride() int {
	return f.Width * BytesPerPixel
}

// Validate checks that Pix holds exactly Width x Height pixels.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 || len(f.Pix) != f.Width*f.Height*BytesPerPixel {
		return fmt.Errorf("%w: %dx%d with %d bytes", ErrFrameSize, f.Width, f.Height, len(f.Pix))
	}
	return nil
}

// Metadata describes a video source as reported by the decoder.
type Metadata struct {
	// Width and Height are the display dimensions, after rotation.
	Width  int
	Height int
	// Rotation is the display rotation of the stream in degrees, one of
	// 0, 90, 180 or 270 for rotations ffmpeg applies.
	Rotation int
	// FrameRate is the ffmpeg rational frame rate, e.g. "30000/1001".
	FrameRate string
	// FPS is FrameRate as a float.
	FPS float64
	// FrameCount is the reported number of frames. It may be zero or
	// inaccurate and is only used for progress reporting.
	FrameCount int
	// Duration is the stream duration in seconds, when known.
	Duration float64
}

// Source yields decoded frames in presentation order.
// The sequence is finite and cannot be restarted.
type Source interface {
	// Metadata returns the properties read when the source was opened.
	Metadata() Metadata

	// Next returns the next frame, or io.EOF once the stream is exhausted.
	Next() (Frame, error)

	// Close releases the decoder. It is safe to call more than once.
	Close() error
}

// Sink accepts frames of a fixed size and frame rate.
type Sink interface {
	// WriteFrame encodes one frame.
	WriteFrame(f Frame) error

	// Close flushes and finalizes the output. It is safe to call more than once.
	Close() error
}

// SinkSpec declares the frame size and rate a Sink is opened with.
type SinkSpec struct {
	Width     int
	Height    int
	FrameRate string
}

// SourceOpener opens a Source for a video file.
type SourceOpener interface {
	OpenSource(ctx context.Context, path string) (Source, error)
}

// SinkOpener opens a Sink writing to a video file.
type SinkOpener interface {
	OpenSink(ctx context.Context, path string, spec SinkSpec) (Sink, error)
}
