// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// ErrInvalidConfig is returned when a loaded value fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// DefaultWorkDir is where jobs keep their inputs and outputs.
const DefaultWorkDir = "/tmp/widescreen"

// Config holds all configuration for the server.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`

	// Storage settings
	WorkDir string `env:"WORK_DIR, default=/tmp/widescreen" json:"work_dir" validate:"required"`
	DBPath  string `env:"DB_PATH" json:"db_path,omitempty"` // Empty keeps jobs in memory

	// Media tools
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`
	VideoCodec  string `env:"VIDEO_CODEC, default=mpeg4" json:"video_codec"`
	VideoTag    string `env:"VIDEO_TAG, default=mp4v" json:"video_tag"`

	// yt-dlp settings
	YtdlpPath    string `env:"YTDLP_PATH" json:"ytdlp_path,omitempty"`
	YtdlpInstall bool   `env:"YTDLP_INSTALL, default=false" json:"ytdlp_install"`

	// Processing settings
	MaxConcurrentJobs int `env:"MAX_CONCURRENT_JOBS, default=2" json:"max_concurrent_jobs" validate:"min=1"`

	// Rate limiting for job submission
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS, default=2" json:"rate_limit_rps" validate:"gt=0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST, default=5" json:"rate_limit_burst" validate:"min=1"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=text json TEXT JSON"`
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"` // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// SQLiteEnabled returns true if jobs should be persisted to SQLite.
func (c *Config) SQLiteEnabled() bool {
	return c.DBPath != ""
}

// Load reads configuration from the environment using go-envconfig.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded values against their constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, WorkDir: %s, DBPath: %s, FFmpegPath: %s, VideoCodec: %s, MaxConcurrentJobs: %d, RateLimitRPS: %g, RateLimitBurst: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.WorkDir,
		c.DBPath,
		c.FFmpegPath,
		c.VideoCodec,
		c.MaxConcurrentJobs,
		c.RateLimitRPS,
		c.RateLimitBurst,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
