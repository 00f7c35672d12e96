package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the h5probe binary.
type Config struct {
	// DatasetPath is the absolute dataset path the version is written to.
	DatasetPath string `yaml:"dataset_path"`
	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// Output is the report format (text, table, json).
	Output string `yaml:"output"`
	// TempDir is where probe files are created when no path is given.
	// Empty means the system temporary directory.
	TempDir string `yaml:"temp_dir"`
	// KeepFile keeps self-created probe files instead of removing them.
	KeepFile bool `yaml:"keep_file"`
	// Parallelism caps concurrent probes when several paths are given.
	Parallelism int `yaml:"parallelism"`
	// MaxStringSize caps the stored string size the probe will read.
	MaxStringSize int `yaml:"max_string_size"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "h5probe.yaml"

	// DefaultDatasetPath is the well-known dataset holding the version.
	DefaultDatasetPath = "/version_str"

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultOutput is used when no report format is configured.
	DefaultOutput = "text"

	// DefaultParallelism is used when several paths are probed.
	DefaultParallelism = 4

	// DefaultMaxStringSize is the default read limit, 1 MiB.
	DefaultMaxStringSize = 1 << 20

	// DefaultFilePermissions is the file permission for saved settings.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errDatasetPath is returned for dataset paths that are not absolute.
	errDatasetPath = errors.New("dataset path must start with '/' and name a dataset")
	// errLogLevel is returned for unknown log levels.
	errLogLevel = errors.New("unknown log level")
	// errOutput is returned for unknown report formats.
	errOutput = errors.New("unknown output format")
	// errNegative is returned for negative numeric settings.
	errNegative = errors.New("value must not be negative")
)

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := new(Config)
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from path and validates it. A missing file at the
// default location yields Default(); a missing explicit path is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultConfigFilename {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and rejects malformed values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.DatasetPath == "" {
		cfg.DatasetPath = DefaultDatasetPath
	}

	if !strings.HasPrefix(cfg.DatasetPath, "/") || strings.HasSuffix(cfg.DatasetPath, "/") {
		return fmt.Errorf("%w: %q", errDatasetPath, cfg.DatasetPath)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	case "warning":
		cfg.LogLevel = "warn"
	default:
		return fmt.Errorf("%w: %q", errLogLevel, cfg.LogLevel)
	}

	cfg.Output = strings.ToLower(strings.TrimSpace(cfg.Output))
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}

	switch cfg.Output {
	case "text", "table", "json":
	default:
		return fmt.Errorf("%w: %q", errOutput, cfg.Output)
	}

	if cfg.Parallelism < 0 {
		return fmt.Errorf("parallelism: %w", errNegative)
	}

	if cfg.Parallelism == 0 {
		cfg.Parallelism = DefaultParallelism
	}

	if cfg.MaxStringSize < 0 {
		return fmt.Errorf("max_string_size: %w", errNegative)
	}

	if cfg.MaxStringSize == 0 {
		cfg.MaxStringSize = DefaultMaxStringSize
	}

	return nil
}
