package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the attendance program.
type Config struct {
	ImagesDir     string `envconfig:"IMAGES_DIR" default:"images"`
	ModelsDir     string `envconfig:"MODELS_DIR" default:"face-recognition-models"`
	AttendanceDir string `envconfig:"ATTENDANCE_DIR" default:"."`

	CameraDevice       int    `envconfig:"CAMERA_DEVICE" default:"0"`
	WindowTitle        string `envconfig:"WINDOW_TITLE" default:"Attendance system"`
	QuitKey            string `envconfig:"QUIT_KEY" default:"q"`
	MaxCaptureFailures int    `envconfig:"MAX_CAPTURE_FAILURES" default:"30"`

	MatchTolerance   float64 `envconfig:"MATCH_TOLERANCE" default:"0.6"`
	StrictEnrollment bool    `envconfig:"STRICT_ENROLLMENT" default:"false"`
	EnrollMaxSize    uint    `envconfig:"ENROLL_MAX_SIZE" default:"1024"`

	// JournalPath enables the SQLite journal when set.
	JournalPath string `envconfig:"JOURNAL_PATH"`
	// StreamAddr enables the live stream server when set.
	StreamAddr string `envconfig:"STREAM_ADDR"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express as tags.
func (c *Config) Validate() error {
	if c.MatchTolerance <= 0 || c.MatchTolerance > 2 {
		return fmt.Errorf("match tolerance must be in (0, 2], got %v", c.MatchTolerance)
	}
	if len(c.QuitKey) != 1 || c.QuitKey[0] > 0x7f {
		return fmt.Errorf("quit key must be a single ASCII character, got %q", c.QuitKey)
	}
	if c.MaxCaptureFailures < 1 {
		return errors.New("max capture failures must be at least 1")
	}
	if c.CameraDevice < 0 {
		return errors.New("camera device must not be negative")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
