// Package config loads the editor's YAML configuration. Values in the
// format ${VAR_NAME} are expanded from the environment, which keeps API
// keys out of the file itself.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete editor configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Venue   VenueConfig   `yaml:"venue"`
	Editor  EditorConfig  `yaml:"editor"`
	Logging LoggingConfig `yaml:"logging"`
	Scan    ScanConfig    `yaml:"scan"`
}

// ServiceConfig holds slot service connection settings.
type ServiceConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	RetryAttempts int    `yaml:"retry_attempts"`

	RequestTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// EditorConfig holds viewport and interaction tuning.
type EditorConfig struct {
	// ViewportPadding is the world-unit margin around the slot bounding
	// box when fitting the view.
	ViewportPadding float64 `yaml:"viewport_padding"`
}

// VenueConfig identifies the venue being edited.
type VenueConfig struct {
	ID          string `yaml:"id"`
	DefaultZone string `yaml:"default_zone"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ScanConfig holds floor-photo import settings.
type ScanConfig struct {
	// TessdataPrefix points OCR at its language data; empty uses the
	// system default.
	TessdataPrefix string `yaml:"tessdata_prefix"`
	// MinTableArea is the smallest detected blob, in pixels of the
	// downscaled photo, that is proposed as a slot.
	MinTableArea float64 `yaml:"min_table_area"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config with defaults applied. A missing file is not an error; the
// defaults stand alone for local use.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:        "http://localhost:8080/api/v1",
			RetryAttempts:  3,
			RequestTimeout: 10 * time.Second,
		},
		Venue: VenueConfig{
			ID:          "default",
			DefaultZone: "all",
		},
		Editor: EditorConfig{
			ViewportPadding: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Scan: ScanConfig{
			MinTableArea: 400,
		},
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that required fields are present and enum fields hold
// known values.
func (c *Config) Validate() error {
	if c.Service.BaseURL == "" {
		return fmt.Errorf("service.base_url is required")
	}
	if c.Venue.ID == "" {
		return fmt.Errorf("venue.id is required")
	}
	if c.Service.RetryAttempts < 1 {
		return fmt.Errorf("service.retry_attempts must be at least 1")
	}
	if c.Editor.ViewportPadding <= 0 {
		return fmt.Errorf("editor.viewport_padding must be positive")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Scan.MinTableArea < 0 {
		return fmt.Errorf("scan.min_table_area must not be negative")
	}
	return nil
}

func parseDurations(cfg *Config) error {
	if cfg.Service.RequestTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Service.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.Service.RequestTimeoutRaw, err)
		}
		cfg.Service.RequestTimeout = d
	}
	return nil
}
