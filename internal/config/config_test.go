package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configVars = []string{
	"PORT", "WORK_DIR", "DB_PATH", "FFMPEG_PATH", "FFPROBE_PATH", "VIDEO_CODEC", "VIDEO_TAG",
	"YTDLP_PATH", "YTDLP_INSTALL", "MAX_CONCURRENT_JOBS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
	"LOG_FORMAT", "LOG_LEVEL",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configVars {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DefaultWorkDir, cfg.WorkDir)
	assert.Empty(t, cfg.DBPath)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, "mpeg4", cfg.VideoCodec)
	assert.Equal(t, "mp4v", cfg.VideoTag)
	assert.False(t, cfg.YtdlpInstall)
	assert.Equal(t, 2, cfg.MaxConcurrentJobs)
	assert.InDelta(t, 2.0, cfg.RateLimitRPS, 1e-9)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
	assert.False(t, cfg.SQLiteEnabled())
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("WORK_DIR", "/custom/work")
	t.Setenv("DB_PATH", "/custom/jobs.db")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg")
	t.Setenv("VIDEO_CODEC", "libx264")
	t.Setenv("VIDEO_TAG", "avc1")
	t.Setenv("YTDLP_PATH", "/opt/yt-dlp")
	t.Setenv("YTDLP_INSTALL", "true")
	t.Setenv("MAX_CONCURRENT_JOBS", "4")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("RATE_LIMIT_BURST", "1")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "/custom/work", cfg.WorkDir)
	assert.Equal(t, "/custom/jobs.db", cfg.DBPath)
	assert.Equal(t, "/opt/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "libx264", cfg.VideoCodec)
	assert.Equal(t, "avc1", cfg.VideoTag)
	assert.Equal(t, "/opt/yt-dlp", cfg.YtdlpPath)
	assert.True(t, cfg.YtdlpInstall)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.InDelta(t, 0.5, cfg.RateLimitRPS, 1e-9)
	assert.Equal(t, 1, cfg.RateLimitBurst)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "http://localhost:9000", cfg.S3Endpoint)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.S3Enabled())
	assert.True(t, cfg.SQLiteEnabled())
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("unparseable integer", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "not-a-number")

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("zero concurrency", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MAX_CONCURRENT_JOBS", "0")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("unknown log format", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LOG_FORMAT", "xml")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("malformed S3 endpoint", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("S3_ENDPOINT", "not a url")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9090\nWORK_DIR=/from/dotenv\n"), 0o600))
	t.Chdir(dir)

	// Values already in the environment take precedence.
	t.Setenv("WORK_DIR", "/from/env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/from/env", cfg.WorkDir)
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:               8080,
		WorkDir:            "/tmp/test",
		MaxConcurrentJobs:  3,
		S3Bucket:           "bucket",
		S3Region:           "region",
		AWSAccessKeyID:     "AKIAEXAMPLE",
		AWSSecretAccessKey: "secret-key",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "/tmp/test")
	assert.Contains(t, str, "bucket")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-key")
	assert.NotContains(t, str, "AKIAEXAMPLE")
}

func TestConfig_NewLogger(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		t.Run(format, func(t *testing.T) {
			cfg := &Config{LogFormat: format, LogLevel: "warn"}

			logger := cfg.NewLogger()
			require.NotNil(t, logger)
			assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
			assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
