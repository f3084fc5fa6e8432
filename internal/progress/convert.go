// Package progress renders conversion and download progress on a terminal.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/maauso/widescreen/internal/aspect"
	"github.com/maauso/widescreen/internal/media"
)

const barWidth = 40

// ConvertPrinter is a media.Observer that prints the layout and a frame
// progress bar.
type ConvertPrinter struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewConvertPrinter returns a ConvertPrinter writing to out.
func NewConvertPrinter(out io.Writer) *ConvertPrinter {
	return &ConvertPrinter{out: out}
}

// Started prints the source and target geometry and creates the bar.
func (p *ConvertPrinter) Started(layout aspect.Layout, meta media.Metadata) {
	_, _ = fmt.Fprintln(p.out, "Converting video to 16:9 aspect ratio...")
	_, _ = fmt.Fprintf(p.out, "Original dimensions: %dx%d (ratio: %.4f)\n",
		layout.SrcWidth, layout.SrcHeight, layout.SourceRatio())
	_, _ = fmt.Fprintf(p.out, "New dimensions: %dx%d (ratio: %.4f)\n",
		layout.Width, layout.Height, layout.Ratio())
	if meta.FrameRate != "" {
		_, _ = fmt.Fprintf(p.out, "Frame rate: %s (%.2f fps)\n", meta.FrameRate, meta.FPS)
	}

	total := meta.FrameCount
	if total <= 0 {
		total = -1 // Unknown length renders as a spinner
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription("Compositing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(barWidth),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
}

// Progress advances the bar. A source that under-reported its length grows
// the bar instead of overflowing it.
func (p *ConvertPrinter) Progress(processed, total int) {
	if p.bar == nil {
		return
	}
	if total > 0 && processed > total {
		p.bar.ChangeMax(processed)
	}
	_ = p.bar.Set(processed)
}

// Finished completes the bar and prints the frame total.
func (p *ConvertPrinter) Finished(processed int) {
	if p.bar != nil {
		if limit := p.bar.GetMax(); limit > 0 && processed > limit {
			p.bar.ChangeMax(processed)
		}
		_ = p.bar.Set(processed)
		_ = p.bar.Finish()
	}
	_, _ = fmt.Fprintf(p.out, "\nComposited %d frames\n", processed)
}

var _ media.Observer = (*ConvertPrinter)(nil)
