// Package config provides configuration management for histree.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	// DefaultRangeDays is how many days back the default range reaches.
	DefaultRangeDays = 1

	// DefaultResultLimit caps the number of pages fetched per rebuild.
	DefaultResultLimit = 1000

	// DefaultFetchConcurrency bounds concurrent per-URL visit lookups.
	DefaultFetchConcurrency = 8

	// DefaultLogLevel is used when none is configured.
	DefaultLogLevel = "warn"

	// DefaultLogFormat is the slog handler used when none is configured.
	DefaultLogFormat = "text"

	// SearchDebounce delays projecting the tree after a keystroke in the
	// search box.
	SearchDebounce = 150 * time.Millisecond

	// RebuildDebounce collapses bursts of range changes and file events into
	// one rebuild.
	RebuildDebounce = 400 * time.Millisecond

	// DefaultTerminalWidth is the default terminal width when auto-detection fails.
	DefaultTerminalWidth = 80

	// MaxSearchHistory is the number of recent queries kept on disk.
	MaxSearchHistory = 50

	// EnvPrefix prefixes environment overrides, e.g. HISTREE_DB_PATH.
	EnvPrefix = "HISTREE"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration that is persisted to disk.
type Config struct {
	DBPath             string `json:"db_path,omitempty" mapstructure:"db_path" validate:"omitempty,filepath"`
	RangeDays          int    `json:"range_days" mapstructure:"range_days" validate:"gte=1,lte=3650"`
	ResultLimit        int    `json:"result_limit" mapstructure:"result_limit" validate:"gte=1,lte=100000"`
	CollapseDuplicates bool   `json:"collapse_duplicates" mapstructure:"collapse_duplicates"`
	ViewerURL          string `json:"viewer_url,omitempty" mapstructure:"viewer_url" validate:"omitempty,url"`
	FetchConcurrency   int    `json:"fetch_concurrency" mapstructure:"fetch_concurrency" validate:"gte=1,lte=64"`
	LogLevel           string `json:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat          string `json:"log_format" mapstructure:"log_format" validate:"oneof=text json"`
	Watch              bool   `json:"watch" mapstructure:"watch"`
}

// Default returns a Config with every field at its default.
func Default() *Config {
	return &Config{
		RangeDays:        DefaultRangeDays,
		ResultLimit:      DefaultResultLimit,
		FetchConcurrency: DefaultFetchConcurrency,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// GetConfigDir returns the platform-specific config directory for histree.
// This is a variable to allow mocking in tests.
var GetConfigDir = func() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "histree"), nil
}

// GetConfigPath returns the full path to the config file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetLogPath returns the file the TUI logs to.
func GetLogPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "histree.log"), nil
}

// Load reads the default config file, applies HISTREE_* environment overrides
// and validates the result. A missing file yields the defaults.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file path. Empty means the default
// path.
func LoadFrom(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("range_days", d.RangeDays)
	v.SetDefault("result_limit", d.ResultLimit)
	v.SetDefault("collapse_duplicates", d.CollapseDuplicates)
	v.SetDefault("viewer_url", d.ViewerURL)
	v.SetDefault("fetch_concurrency", d.FetchConcurrency)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("watch", d.Watch)
}

// Save writes the config to disk with user-only permissions.
func Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
