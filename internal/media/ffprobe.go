package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultFrameRate is used when ffprobe reports no usable frame rate.
const DefaultFrameRate = "25"

// FFprobe reads video metadata using the ffprobe CLI.
type FFprobe struct {
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewFFprobe creates a new FFprobe.
// If ffprobePath is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobe(ffprobePath string) *FFprobe {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobe{ffprobePath: ffprobePath}
}

type ffprobeStream struct {
	CodecType    string            `json:"codec_type"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	RFrameRate   string            `json:"r_frame_rate"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	NbFrames     string            `json:"nb_frames"`
	Duration     string            `json:"duration"`
	SideDataList []ffprobeSideData `json:"side_data_list"`
	Tags         ffprobeTags       `json:"tags"`
}

// ffprobeSideData carries the display matrix rotation of a stream.
type ffprobeSideData struct {
	Rotation float64 `json:"rotation"`
}

// ffprobeTags holds the rotate tag written by older muxers.
type ffprobeTags struct {
	Rotate string `json:"rotate"`
}

// rotation returns the display rotation in degrees, normalized to [0, 360).
// The display matrix wins over the legacy rotate tag.
func (s ffprobeStream) rotation() int {
	deg := parseFloat(s.Tags.Rotate)
	for _, sd := range s.SideDataList {
		if sd.Rotation != 0 {
			deg = sd.Rotation
			break
		}
	}
	return ((int(math.Round(deg)) % 360) + 360) % 360
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeResult struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

// Probe returns the metadata of the first video stream in path.
func (p *FFprobe) Probe(ctx context.Context, path string) (Metadata, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Metadata{}, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return Metadata{}, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, strings.TrimSpace(stderr.String()))
	}

	return parseProbeOutput(stdout.Bytes())
}

// parseProbeOutput extracts Metadata from ffprobe JSON output.
func parseProbeOutput(data []byte) (Metadata, error) {
	var result ffprobeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return Metadata{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, s := range result.Streams {
		if s.CodecType != "video" || s.Width <= 0 || s.Height <= 0 {
			continue
		}

		meta := Metadata{
			Width:     s.Width,
			Height:    s.Height,
			FrameRate: s.RFrameRate,
			Rotation:  s.rotation(),
		}
		// ffmpeg autorotates while decoding, so frames arrive in display
		// orientation.
		if meta.Rotation == 90 || meta.Rotation == 270 {
			meta.Width, meta.Height = meta.Height, meta.Width
		}
		meta.FPS = parseRate(meta.FrameRate)
		if meta.FPS <= 0 {
			meta.FrameRate = s.AvgFrameRate
			meta.FPS = parseRate(meta.FrameRate)
		}
		if meta.FPS <= 0 {
			meta.FrameRate = DefaultFrameRate
			meta.FPS = parseRate(DefaultFrameRate)
		}

		meta.Duration = parseFloat(s.Duration)
		if meta.Duration <= 0 {
			meta.Duration = parseFloat(result.Format.Duration)
		}

		if n, err := strconv.Atoi(s.NbFrames); err == nil && n > 0 {
			meta.FrameCount = n
		} else if meta.Duration > 0 {
			meta.FrameCount = int(math.Round(meta.Duration * meta.FPS))
		}

		return meta, nil
	}

	return Metadata{}, ErrNoVideoStream
}

// parseRate converts "num/den" or a plain number to a float. Invalid or
// zero rates yield 0.
func parseRate(rate string) float64 {
	num, den, found := strings.Cut(strings.TrimSpace(rate), "/")
	if !found {
		return parseFloat(num)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
