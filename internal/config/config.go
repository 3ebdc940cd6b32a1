package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Metadata MetadataConfig `yaml:"metadata"`
	Scanner  ScannerConfig  `yaml:"scanner"`
	Logging  LoggingConfig  `yaml:"logging"`
	Watch    WatchConfig    `yaml:"watch"`
	Progress ProgressConfig `yaml:"progress"`
}

// MetadataConfig describes the sidecar format produced by the photo export.
// The suffix and key path are knowledge of the external schema, kept here so
// a producer-side schema change does not require a code change.
type MetadataConfig struct {
	Suffix        string `yaml:"suffix"`
	TakenTimePath string `yaml:"taken_time_path"`
}

// ScannerConfig holds directory traversal settings.
type ScannerConfig struct {
	Exclusions     []string `yaml:"exclusions"`
	FollowSymlinks bool     `yaml:"follow_symlinks"`
}

// LoggingConfig holds logging settings. Dir defaults to the scanned root
// when empty; each run writes its own timestamped log file there.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// WatchConfig holds filesystem watch settings.
type WatchConfig struct {
	DebounceSeconds int `yaml:"debounce_seconds"`
	PollSeconds     int `yaml:"poll_seconds"`
}

// ProgressConfig holds console progress display settings.
type ProgressConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Metadata: MetadataConfig{
			Suffix:        ".supplemental-metadata.json",
			TakenTimePath: "photoTakenTime.timestamp",
		},
		Scanner: ScannerConfig{},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Watch: WatchConfig{
			DebounceSeconds: 2,
			PollSeconds:     60,
		},
		Progress: ProgressConfig{
			Enabled: true,
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator's own flag
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("PT_METADATA_SUFFIX"); v != "" {
		c.Metadata.Suffix = v
	}
	if v := os.Getenv("PT_TAKEN_TIME_PATH"); v != "" {
		c.Metadata.TakenTimePath = v
	}
	if v := os.Getenv("PT_SCAN_EXCLUSIONS"); v != "" {
		c.Scanner.Exclusions = strings.Split(v, ",")
	}
	if v := os.Getenv("PT_FOLLOW_SYMLINKS"); v != "" {
		c.Scanner.FollowSymlinks = v == "true" || v == "1"
	}
	if v := os.Getenv("PT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("PT_LOG_DIR"); v != "" {
		c.Logging.Dir = v
	}
	if v := os.Getenv("PT_WATCH_DEBOUNCE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Watch.DebounceSeconds = n
		}
	}
	if v := os.Getenv("PT_WATCH_POLL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Watch.PollSeconds = n
		}
	}
	if v := os.Getenv("PT_PROGRESS"); v != "" {
		c.Progress.Enabled = v == "true" || v == "1"
	}
}

func (c *Config) validate() error {
	if c.Metadata.Suffix == "" || !strings.HasPrefix(c.Metadata.Suffix, ".") {
		return fmt.Errorf("invalid metadata suffix: %q", c.Metadata.Suffix)
	}
	if c.Metadata.TakenTimePath == "" {
		return fmt.Errorf("taken time key path is required")
	}
	for _, part := range strings.Split(c.Metadata.TakenTimePath, ".") {
		if part == "" {
			return fmt.Errorf("invalid taken time key path: %q", c.Metadata.TakenTimePath)
		}
	}
	if c.Watch.DebounceSeconds <= 0 {
		c.Watch.DebounceSeconds = 2
	}
	if c.Watch.PollSeconds <= 0 {
		c.Watch.PollSeconds = 60
	}
	return nil
}
