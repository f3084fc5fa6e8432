package fetch

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBrowser(t *testing.T) {
	assert.Equal(t, "safari", DefaultBrowser("darwin"))
	assert.Equal(t, "chrome", DefaultBrowser("linux"))
	assert.Equal(t, "chrome", DefaultBrowser("windows"))
}

func TestDownloader_Normalize(t *testing.T) {
	d := New()

	t.Run("fills output dir and browser", func(t *testing.T) {
		d.goos = "darwin"
		req, err := d.Normalize(Request{URL: "https://example.com/watch?v=1", UseCookies: true})
		require.NoError(t, err)

		wd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, wd, req.OutputDir)
		assert.Equal(t, "safari", req.Browser)
	})

	t.Run("explicit browser wins", func(t *testing.T) {
		req, err := d.Normalize(Request{URL: "https://example.com/v", UseCookies: true, Browser: "firefox", OutputDir: "/videos"})
		require.NoError(t, err)
		assert.Equal(t, "firefox", req.Browser)
		assert.Equal(t, "/videos", req.OutputDir)
	})

	t.Run("cookies disabled drops browser", func(t *testing.T) {
		req, err := d.Normalize(Request{URL: "https://example.com/v", Browser: "edge"})
		require.NoError(t, err)
		assert.Empty(t, req.Browser)
	})

	t.Run("rejects invalid requests", func(t *testing.T) {
		tests := []struct {
			name string
			req  Request
		}{
			{"missing URL", Request{}},
			{"malformed URL", Request{URL: "not a url"}},
			{"unknown browser", Request{URL: "https://example.com/v", UseCookies: true, Browser: "netscape"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := d.Normalize(tt.req)
				assert.ErrorIs(t, err, ErrInvalidRequest)
			})
		}
	})

	t.Run("accepts every listed browser", func(t *testing.T) {
		for _, b := range Browsers {
			_, err := d.Normalize(Request{URL: "https://example.com/v", UseCookies: true, Browser: b})
			assert.NoError(t, err, b)
		}
	})
}

func TestParseInfo(t *testing.T) {
	out := []byte(`{
		"title": "Big Buck Bunny",
		"duration": 596.5,
		"_filename": "/videos/Big Buck Bunny.webm",
		"formats": [
			{"format_id": "140", "vcodec": "none", "height": null, "filesize": 9000000},
			{"format_id": "137", "vcodec": "avc1.640028", "height": 1080, "filesize": 120000000},
			{"format_id": "248", "vcodec": "vp9", "height": 1080, "filesize": 150000000},
			{"format_id": "22", "vcodec": "avc1", "height": 720, "filesize": 300000000}
		]
	}`)

	info, err := parseInfo(out)
	require.NoError(t, err)
	assert.Equal(t, "Big Buck Bunny", info.Title)
	assert.Equal(t, 596500*time.Millisecond, info.Duration)
	assert.Equal(t, 1080, info.BestHeight)
	assert.Equal(t, int64(150000000), info.ApproxSize)
	assert.Equal(t, "/videos/Big Buck Bunny.webm", info.Filename)
	assert.Equal(t, "/videos/Big Buck Bunny.mp4", info.OutputPath("/videos"))
}

func TestParseInfo_Sparse(t *testing.T) {
	info, err := parseInfo([]byte(`{"formats": [{"vcodec": "none"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "video", info.Title)
	assert.Zero(t, info.Duration)
	assert.Zero(t, info.BestHeight)
	assert.Equal(t, filepath.Join("/out", "video.mp4"), info.OutputPath("/out"))

	_, err = parseInfo([]byte(`<html>`))
	assert.Error(t, err)
}

func TestParseInfo_PrefersFilenameField(t *testing.T) {
	info, err := parseInfo([]byte(`{"title": "t", "filename": "/a/t.mp4", "_filename": "/b/t.mkv"}`))
	require.NoError(t, err)
	assert.Equal(t, "/a/t.mp4", info.Filename)
}

func TestBestVideoFormat_MissingCodecCountsAsVideo(t *testing.T) {
	best, ok := bestVideoFormat([]ytdlpFormat{
		{FormatID: "audio", VCodec: "none", Height: 0},
		{FormatID: "unknown", Height: 360},
	})
	require.True(t, ok)
	assert.Equal(t, "unknown", best.FormatID)

	_, ok = bestVideoFormat(nil)
	assert.False(t, ok)
}

// recordingObserver records download events.
type recordingObserver struct {
	details     []VideoInfo
	downloading [][2]int64
	files       []string
	merging     int
}

func (o *recordingObserver) Details(info VideoInfo) { o.details = append(o.details, info) }
func (o *recordingObserver) Downloading(name string, done, total int64) {
	o.files = append(o.files, name)
	o.downloading = append(o.downloading, [2]int64{done, total})
}
func (o *recordingObserver) Merging() { o.merging++ }

func TestProgressHandler(t *testing.T) {
	obs := &recordingObserver{}
	handle := progressHandler(obs)

	handle(ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusDownloading, Filename: "v.f137.mp4", DownloadedBytes: 512, TotalBytes: 2048})
	handle(ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusDownloading, Filename: "v.f137.mp4", DownloadedBytes: 2048, TotalBytes: 2048})
	handle(ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusPostProcessing})
	handle(ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusPostProcessing})

	assert.Equal(t, [][2]int64{{512, 2048}, {2048, 2048}}, obs.downloading)
	assert.Equal(t, []string{"v.f137.mp4", "v.f137.mp4"}, obs.files)
	assert.Equal(t, 1, obs.merging)
}

func TestDownload_InvalidRequestRunsNothing(t *testing.T) {
	obs := &recordingObserver{}
	d := New(WithExecutable("/nonexistent/yt-dlp"))

	_, err := d.Download(t.Context(), Request{URL: "ftp//broken"}, obs)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, obs.details)
}

func TestDownload_MissingExecutable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	d := New(WithExecutable(filepath.Join(t.TempDir(), "no-such-yt-dlp")))

	_, err := d.Download(t.Context(), Request{URL: "https://example.com/v", OutputDir: dir}, nil)
	assert.ErrorIs(t, err, ErrInspect)
	assert.DirExists(t, dir, "output directory is created before fetching")
}

func TestWriteTroubleshooting(t *testing.T) {
	var buf bytes.Buffer
	WriteTroubleshooting(&buf)

	out := buf.String()
	assert.Contains(t, out, "Troubleshooting steps:")
	assert.Contains(t, out, "1. Check that the video URL is correct")
	assert.Contains(t, out, "brew install ffmpeg")
	assert.Contains(t, out, "5. For private videos")
}
