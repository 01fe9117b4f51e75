package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StorageDir string `toml:"storage_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Encoder contains ffmpeg selection settings. Output quality parameters are
// fixed by the encoder invocation contract and are not configurable.
type Encoder struct {
	// Binary overrides ffmpeg discovery. When empty, a sidecar ffmpeg next to
	// the timelapse executable is preferred, then ffmpeg from PATH.
	Binary string `toml:"binary"`
}

// Jobs contains job directory lifecycle settings.
type Jobs struct {
	RetentionHours       int `toml:"retention_hours"`
	SweepIntervalMinutes int `toml:"sweep_interval_minutes"`
	ShutdownGraceSeconds int `toml:"shutdown_grace_seconds"`
}

// Notifications contains ntfy and redis status publishing settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RedisAddr      string `toml:"redis_addr"`
	RedisChannel   string `toml:"redis_channel"`
	OnComplete     bool   `toml:"on_complete"`
	OnFailure      bool   `toml:"on_failure"`
}

// Metrics toggles the prometheus endpoint.
type Metrics struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the timelapse daemon and CLI.
//
// Configuration sections by subsystem:
//   - Paths: job storage, logs, and API bind address
//   - Encoder: ffmpeg binary override
//   - Jobs: retention and shutdown timing for job directories
//   - Notifications: ntfy push and redis pub/sub status events
//   - Metrics: prometheus exposition
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Encoder       Encoder       `toml:"encoder"`
	Jobs          Jobs          `toml:"jobs"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath is where Load looks first when no path is given.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the TOML file at path over the built-in defaults, then
// normalizes and validates the result. With an empty path the default
// location is tried, then ./timelapse.toml. It also returns the path that
// was consulted and whether a file was found there; a missing file is not
// an error.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	err = decoder.Decode(cfg)
	var strict *toml.StrictMissingError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &strict):
		return fmt.Errorf("parse config: %s", strict.String())
	default:
		return fmt.Errorf("parse config: %w", err)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		return searchDefaultLocations()
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	_, err = os.Stat(expanded)
	switch {
	case err == nil:
		return expanded, true, nil
	case errors.Is(err, fs.ErrNotExist):
		return expanded, false, nil
	default:
		return "", false, fmt.Errorf("stat config: %w", err)
	}
}

func searchDefaultLocations() (string, bool, error) {
	home, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	local, err := filepath.Abs("timelapse.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{home, local} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return home, false, nil
}

// EnsureDirectories creates the job storage and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StorageDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobRetention returns how long finished job directories are kept. Zero disables the sweep.
func (c *Config) JobRetention() time.Duration {
	return time.Duration(c.Jobs.RetentionHours) * time.Hour
}

// SweepInterval returns the stale job sweeper period.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Jobs.SweepIntervalMinutes) * time.Minute
}

// ShutdownGrace bounds how long daemon shutdown waits for in-flight encodes.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Jobs.ShutdownGraceSeconds) * time.Second
}

// NotifyTimeout returns the per-request timeout for notification delivery.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

// expandPath resolves a leading "~" against the home directory and returns
// an absolute, cleaned path. "~user" forms are left alone.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if rest, ok := strings.CutPrefix(value, "~"); ok && (rest == "" || os.IsPathSeparator(rest[0])) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = home + rest
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath applies the same "~" and absolute-path rules used for config
// values.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// CreateSample writes the commented sample config to path, creating parent
// directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
