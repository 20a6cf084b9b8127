package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	tests := []struct {
		goos           string
		wantFilesystem string
		wantSources    bool
	}{
		{goos: "darwin", wantFilesystem: "APFS", wantSources: true},
		{goos: "linux", wantFilesystem: "tmpfs", wantSources: true},
		{goos: "plan9", wantFilesystem: "APFS", wantSources: false},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cfg, err := load(tt.goos, "")
			require.NoError(t, err)

			assert.Equal(t, DefaultLabel, cfg.Volume.Label)
			assert.Equal(t, tt.wantFilesystem, cfg.Volume.Filesystem)
			assert.Equal(t, DefaultFallbackPath, cfg.Volume.FallbackPath)
			assert.Equal(t, DefaultMountDir, cfg.Volume.MountDir)
			assert.True(t, cfg.Precache.Enabled)
			assert.Equal(t, tt.wantSources, len(cfg.Precache.Sources) > 0)
			assert.True(t, cfg.Tuning.Enabled)
			assert.Equal(t, DefaultCommandTimeout, cfg.Timeouts.Command)
			assert.Equal(t, DefaultCopyTimeout, cfg.Timeouts.Copy)
			assert.Equal(t, "info", cfg.Logging.Level)

			size, err := cfg.LogMaxSizeBytes()
			require.NoError(t, err)
			assert.Equal(t, int64(5_000_000), size)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiercache.yaml")
	content := `volume:
  label: FastCache
  fallback_path: /var/tmp/fastcache
precache:
  sources:
    - /opt/lib/one
timeouts:
  copy: 30s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := load("darwin", path)
	require.NoError(t, err)

	assert.Equal(t, "FastCache", cfg.Volume.Label)
	assert.Equal(t, "/var/tmp/fastcache", cfg.Volume.FallbackPath)
	assert.Equal(t, []string{"/opt/lib/one"}, cfg.Precache.Sources)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Copy)
	assert.Equal(t, DefaultCommandTimeout, cfg.Timeouts.Command)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "APFS", cfg.Volume.Filesystem)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load("darwin", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := load("darwin", "")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty label", mutate: func(c *Config) { c.Volume.Label = "" }, wantErr: ErrEmptyLabel},
		{name: "label with space", mutate: func(c *Config) { c.Volume.Label = "Tier Cache" }, wantErr: ErrLabelSpaces},
		{name: "empty fallback", mutate: func(c *Config) { c.Volume.FallbackPath = "" }, wantErr: ErrEmptyFallback},
		{name: "relative fallback", mutate: func(c *Config) { c.Volume.FallbackPath = "cache" }, wantErr: ErrRelativePath},
		{name: "relative mount dir", mutate: func(c *Config) { c.Volume.MountDir = "mnt" }, wantErr: ErrRelativePath},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeouts.Copy = 0 }, wantErr: ErrBadTimeout},
		{
			name: "duplicate source base name",
			mutate: func(c *Config) {
				c.Precache.Sources = []string{"/usr/lib/x86_64-linux-gnu/dri", "/usr/lib/aarch64-linux-gnu/dri"}
			},
			wantErr: ErrDupSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_BadLogSize(t *testing.T) {
	cfg, err := load("linux", "")
	require.NoError(t, err)

	cfg.Logging.MaxSize = "lots"
	assert.Error(t, cfg.Validate())
}

func TestDefaultSources_DistinctBaseNames(t *testing.T) {
	tests := []struct {
		goos, goarch string
		wantDRI      string
	}{
		{goos: "linux", goarch: "amd64", wantDRI: "/usr/lib/x86_64-linux-gnu/dri"},
		{goos: "linux", goarch: "arm64", wantDRI: "/usr/lib/aarch64-linux-gnu/dri"},
		{goos: "linux", goarch: "riscv64"},
		{goos: "darwin", goarch: "arm64"},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			sources := defaultSources(tt.goos, tt.goarch)
			require.NotEmpty(t, sources)

			seen := make(map[string]bool)
			dri := 0
			for _, src := range sources {
				base := filepath.Base(src)
				assert.False(t, seen[base], "two sources named %s", base)
				seen[base] = true
				if base == "dri" {
					dri++
					assert.Equal(t, tt.wantDRI, src)
				}
			}
			if tt.wantDRI == "" {
				assert.Zero(t, dri)
			} else {
				assert.Equal(t, 1, dri)
			}
		})
	}
}

func TestDefaultSources_ReturnsCopy(t *testing.T) {
	first := DefaultSources("darwin")
	require.NotEmpty(t, first)
	first[0] = "/changed"

	assert.NotEqual(t, "/changed", DefaultSources("darwin")[0])
}
