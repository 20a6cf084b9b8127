package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// VolumeConfig configures the cache volume.
type VolumeConfig struct {
	Label        string `mapstructure:"label"`
	Filesystem   string `mapstructure:"filesystem"`
	FallbackPath string `mapstructure:"fallback_path"`
	MountDir     string `mapstructure:"mount_dir"` // linux tmpfs mount point
}

// PrecacheConfig configures the precache loader.
type PrecacheConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Sources []string `mapstructure:"sources"`
}

// TuningConfig configures the kernel tuning applier.
type TuningConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TimeoutConfig bounds external commands.
type TimeoutConfig struct {
	Command time.Duration `mapstructure:"command"`
	Copy    time.Duration `mapstructure:"copy"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSize    string `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Config represents the application configuration.
type Config struct {
	Volume   VolumeConfig   `mapstructure:"volume"`
	Precache PrecacheConfig `mapstructure:"precache"`
	Tuning   TuningConfig   `mapstructure:"tuning"`
	Timeouts TimeoutConfig  `mapstructure:"timeouts"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Load returns the configuration. With an empty path only compiled-in
// defaults are used; no config file or environment variable is consulted.
// With a path, that file (any format viper understands) overrides defaults.
func Load(path string) (*Config, error) {
	return load(runtime.GOOS, path)
}

func load(goos, path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, goos)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, goos string) {
	v.SetDefault("volume.label", DefaultLabel)
	v.SetDefault("volume.filesystem", DefaultFilesystem(goos))
	v.SetDefault("volume.fallback_path", DefaultFallbackPath)
	v.SetDefault("volume.mount_dir", DefaultMountDir)

	v.SetDefault("precache.enabled", true)
	v.SetDefault("precache.sources", DefaultSources(goos))

	v.SetDefault("tuning.enabled", true)

	v.SetDefault("timeouts.command", DefaultCommandTimeout)
	v.SetDefault("timeouts.copy", DefaultCopyTimeout)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "") // Empty means logging.DefaultLogPath
	v.SetDefault("logging.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.max_backups", DefaultLogMaxBackups)
}

// Validation errors.
var (
	ErrEmptyLabel    = errors.New("volume label cannot be empty")
	ErrLabelSpaces   = errors.New("volume label cannot contain whitespace")
	ErrEmptyFallback = errors.New("fallback path cannot be empty")
	ErrRelativePath  = errors.New("path must be absolute")
	ErrBadTimeout    = errors.New("timeout must be positive")
	ErrDupSource     = errors.New("precache sources share a base name")
)

// Validate checks the configuration for values the provisioner cannot use.
func (c *Config) Validate() error {
	if c.Volume.Label == "" {
		return ErrEmptyLabel
	}
	if strings.ContainsAny(c.Volume.Label, " \t\n") {
		return fmt.Errorf("%w: %q", ErrLabelSpaces, c.Volume.Label)
	}
	if c.Volume.FallbackPath == "" {
		return ErrEmptyFallback
	}
	if !strings.HasPrefix(c.Volume.FallbackPath, "/") {
		return fmt.Errorf("fallback_path %q: %w", c.Volume.FallbackPath, ErrRelativePath)
	}
	if c.Volume.MountDir != "" && !strings.HasPrefix(c.Volume.MountDir, "/") {
		return fmt.Errorf("mount_dir %q: %w", c.Volume.MountDir, ErrRelativePath)
	}
	if c.Timeouts.Command <= 0 || c.Timeouts.Copy <= 0 {
		return ErrBadTimeout
	}
	// Each source is copied to tier1/system/<base name>.
	seen := make(map[string]string, len(c.Precache.Sources))
	for _, src := range c.Precache.Sources {
		base := filepath.Base(src)
		if prev, ok := seen[base]; ok {
			return fmt.Errorf("%w: %s and %s", ErrDupSource, prev, src)
		}
		seen[base] = src
	}
	if _, err := c.LogMaxSizeBytes(); err != nil {
		return err
	}
	return nil
}

// LogMaxSizeBytes parses Logging.MaxSize (e.g. "5MB", "512KiB").
func (c *Config) LogMaxSizeBytes() (int64, error) {
	size, err := humanize.ParseBytes(c.Logging.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("invalid logging.max_size %q: %w", c.Logging.MaxSize, err)
	}
	return int64(size), nil
}
