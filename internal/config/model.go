package config

import (
	"errors"
	"os"
	"strings"
)

const (
	EnvModelPath = "AQUACHECK_MODEL_PATH"

	EnvLogLevel  = "AQUACHECK_LOG_LEVEL"
	EnvLogFormat = "AQUACHECK_LOG_FORMAT"
)

// ModelConfig locates the classifier artifact.
type ModelConfig struct {
	Path string `toml:"path"`
}

func (c *ModelConfig) Finalize() error {
	if c.Path == "" {
		c.Path = "models/water_quality_rf.yaml"
	}
	if v := os.Getenv(EnvModelPath); v != "" {
		c.Path = v
	}
	if strings.TrimSpace(c.Path) == "" {
		return errors.New("path is required")
	}
	return nil
}

func (c *ModelConfig) Merge(overlay *ModelConfig) {
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func (c *LogConfig) Finalize() error {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Format = v
	}

	c.Level = strings.ToLower(c.Level)
	c.Format = strings.ToLower(c.Format)
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("invalid level: " + c.Level)
	}
	switch c.Format {
	case "json", "console":
	default:
		return errors.New("invalid format: " + c.Format)
	}
	return nil
}

func (c *LogConfig) Merge(overlay *LogConfig) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
}
