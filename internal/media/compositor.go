package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/maauso/widescreen/internal/aspect"
)

// ProgressInterval is the number of frames between Observer.Progress calls.
const ProgressInterval = 100

// Observer receives progress notifications from a conversion run.
// Callbacks run on the compositing goroutine and must not block for long.
type Observer interface {
	// Started is called once the layout is known, before the first frame.
	Started(layout aspect.Layout, meta Metadata)
	// Progress is called after every ProgressInterval frames. total is the
	// frame count reported by the source and may be zero.
	Progress(processed, total int)
	// Finished is called after the last frame was written.
	Finished(processed int)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

// Started implements Observer.
func (NopObserver) Started(aspect.Layout, Metadata) {}

// Progress implements Observer.
func (NopObserver) Progress(int, int) {}

// Finished implements Observer.
func (NopObserver) Finished(int) {}

// Fraction returns processed/total, or 0 when total is unknown.
func Fraction(processed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(processed) / float64(total)
}

// Pad copies f into a new black canvas at the layout's offsets.
func Pad(f Frame, layout aspect.Layout) (Frame, error) {
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	if f.Width != layout.SrcWidth || f.Height != layout.SrcHeight {
		return Frame{}, fmt.Errorf("%w: got %dx%d, want %dx%d",
			ErrFrameSize, f.Width, f.Height, layout.SrcWidth, layout.SrcHeight)
	}

	canvas := NewFrame(layout.Width, layout.Height)
	srcStride := f.Stride()
	dstStride := canvas.Stride()
	offset := layout.PadY*dstStride + layout.PadX*BytesPerPixel

	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*srcStride : (y+1)*srcStride]
		copy(canvas.Pix[offset+y*dstStride:], row)
	}

	return canvas, nil
}

// Composite reads every frame from src, pads it onto a fresh canvas and
// writes it to sink, in order. It stops at the end of the source, not at the
// reported frame count, and returns the number of frames written.
func Composite(ctx context.Context, src Source, sink Sink, layout aspect.Layout, obs Observer) (int, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	total := src.Metadata().FrameCount
	processed := 0

	for {
		if err := ctx.Err(); err != nil {
			return processed, fmt.Errorf("composite cancelled: %w", err)
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			return processed, nil
		}
		if err != nil {
			return processed, fmt.Errorf("read frame %d: %w", processed, err)
		}

		canvas, err := Pad(frame, layout)
		if err != nil {
			return processed, fmt.Errorf("pad frame %d: %w", processed, err)
		}

		if err := sink.WriteFrame(canvas); err != nil {
			return processed, fmt.Errorf("write frame %d: %w", processed, err)
		}

		processed++
		if processed%ProgressInterval == 0 {
			obs.Progress(processed, total)
		}
	}
}
