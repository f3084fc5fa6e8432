package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no url", nil},
		{"only output", []string{"-o", "/tmp"}},
		{"positional args", []string{"-u", "https://example.com/v", "extra"}},
		{"unknown flag", []string{"--nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stdout, &stderr)

			assert.Equal(t, 2, code)
			assert.Empty(t, stdout.String())
			assert.Contains(t, stderr.String(), "Usage: fetchvideo")
		})
	}
}

func TestRun_InvalidBrowser(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-u", "https://example.com/v", "-b", "lynx"}, &stdout, &stderr)

	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), `invalid browser "lynx"`)
}

func TestRun_FailurePrintsTroubleshooting(t *testing.T) {
	dir := t.TempDir()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--url", "https://example.com/watch?v=1",
		"--output", dir,
		"--no-cookies",
		"--yt-dlp", filepath.Join(dir, "missing-yt-dlp"),
	}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error:")
	assert.Contains(t, stderr.String(), "Troubleshooting steps:")
	assert.NotContains(t, stdout.String(), "Download completed successfully!")
}
