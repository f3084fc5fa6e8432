package fetch

import (
	"fmt"
	"io"
)

// troubleshooting is printed after a failed fetch.
var troubleshooting = []string{
	"Check that the video URL is correct",
	"Check your internet connection",
	"Make sure yt-dlp is up to date (yt-dlp -U)",
	"Install or update ffmpeg, which merging requires:\n" +
		"   - macOS: brew install ffmpeg\n" +
		"   - Ubuntu/Debian: sudo apt-get install ffmpeg\n" +
		"   - Windows: https://ffmpeg.org/download.html",
	"For private videos, make sure:\n" +
		"   - you are logged into the site in your browser\n" +
		"   - your account can access the video\n" +
		"   - the selected browser holds the login cookies",
}

// WriteTroubleshooting prints the numbered troubleshooting steps to w.
func WriteTroubleshooting(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Troubleshooting steps:")
	for i, step := range troubleshooting {
		_, _ = fmt.Fprintf(w, "%d. %s\n", i+1, step)
	}
}
