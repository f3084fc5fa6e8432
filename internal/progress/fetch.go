package progress

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/maauso/widescreen/internal/fetch"
)

// FetchPrinter is a fetch.Observer that prints video details and one byte
// progress bar per downloaded stream.
type FetchPrinter struct {
	out     io.Writer
	bar     *progressbar.ProgressBar
	current string
}

// NewFetchPrinter returns a FetchPrinter writing to out.
func NewFetchPrinter(out io.Writer) *FetchPrinter {
	return &FetchPrinter{out: out}
}

// Details prints the title, duration and best available quality.
func (p *FetchPrinter) Details(info fetch.VideoInfo) {
	_, _ = fmt.Fprintln(p.out, "\nVideo details:")
	_, _ = fmt.Fprintf(p.out, "Title: %s\n", info.Title)
	_, _ = fmt.Fprintf(p.out, "Duration: %s\n", FormatDuration(info.Duration))
	if info.BestHeight > 0 {
		_, _ = fmt.Fprintf(p.out, "Best quality available: %dp\n", info.BestHeight)
	}
	if info.ApproxSize > 0 {
		_, _ = fmt.Fprintf(p.out, "Approximate size: %s\n", humanize.Bytes(uint64(info.ApproxSize)))
	}
	_, _ = fmt.Fprintln(p.out, "\nStarting download in best quality...")
}

// Downloading updates the bar for filename, starting a new bar when yt-dlp
// moves on to the next stream.
func (p *FetchPrinter) Downloading(filename string, downloaded, total int64) {
	if p.bar == nil || filename != p.current {
		p.finishBar()
		p.current = filename
		if total <= 0 {
			total = -1
		}
		p.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(filepath.Base(filename)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(barWidth),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
	}
	if total > 0 && p.bar.GetMax64() != total {
		p.bar.ChangeMax64(total)
	}
	_ = p.bar.Set64(downloaded)
}

// Merging closes the last bar and announces the merge step.
func (p *FetchPrinter) Merging() {
	p.finishBar()
	_, _ = fmt.Fprintln(p.out, "\nMerging video and audio...")
}

func (p *FetchPrinter) finishBar() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

// Done prints where the merged video was saved.
func (p *FetchPrinter) Done(path string) {
	p.finishBar()
	_, _ = fmt.Fprintln(p.out, "\nDownload completed successfully!")
	_, _ = fmt.Fprintf(p.out, "Saved to: %s\n", path)
}

// FormatDuration renders d as m:ss, or h:mm:ss past an hour.
func FormatDuration(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 0 {
		secs = 0
	}
	h, m, s := secs/3600, secs/60%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

var _ fetch.Observer = (*FetchPrinter)(nil)
