package media

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/widescreen/internal/aspect"
)

// Result summarizes a finished conversion.
type Result struct {
	Layout   aspect.Layout
	Metadata Metadata
	// Frames is the number of frames written to the output.
	Frames int
}

// Converter pads a video to 16:9 by running the compositor between a
// Source and a Sink.
type Converter struct {
	sources SourceOpener
	sinks   SinkOpener
	logger  *slog.Logger
}

// NewConverter creates a Converter.
func NewConverter(sources SourceOpener, sinks SinkOpener, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{sources: sources, sinks: sinks, logger: logger}
}

// Convert writes a 16:9 copy of input to output.
//
// The sink is only opened once the source opened successfully, so an
// unreadable input never creates an output file. Both resources are closed
// exactly once, the sink first.
func (c *Converter) Convert(ctx context.Context, input, output string, obs Observer) (Result, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	src, err := c.sources.OpenSource(ctx, input)
	if err != nil {
		return Result{}, fmt.Errorf("%w %s: %w", ErrOpenSource, input, err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			c.logger.Warn("failed to close video source",
				slog.String("input", input),
				slog.String("error", cerr.Error()),
			)
		}
	}()

	meta := src.Metadata()
	layout, err := aspect.Compute(meta.Width, meta.Height)
	if err != nil {
		return Result{}, fmt.Errorf("compute layout for %s: %w", input, err)
	}

	c.logger.Info("converting video to 16:9",
		slog.String("input", input),
		slog.String("output", output),
		slog.String("layout", layout.String()),
		slog.Bool("already_widescreen", layout.IsIdentity()),
		slog.String("frame_rate", meta.FrameRate),
		slog.Int("reported_frames", meta.FrameCount),
	)

	sink, err := c.sinks.OpenSink(ctx, output, SinkSpec{
		Width:     layout.Width,
		Height:    layout.Height,
		FrameRate: meta.FrameRate,
	})
	if err != nil {
		return Result{}, fmt.Errorf("open output %s: %w", output, err)
	}

	obs.Started(layout, meta)

	frames, runErr := Composite(ctx, src, sink, layout, obs)
	closeErr := sink.Close()

	res := Result{Layout: layout, Metadata: meta, Frames: frames}
	if runErr != nil {
		return res, runErr
	}
	if closeErr != nil {
		return res, fmt.Errorf("finalize output %s: %w", output, closeErr)
	}

	obs.Finished(frames)

	c.logger.Info("conversion complete",
		slog.String("output", output),
		slog.Int("frames", frames),
	)
	return res, nil
}
