// Package config provides configuration management for tiercache.
package config

import (
	"path"
	"runtime"
	"time"
)

// Default configuration values.
const (
	// DefaultLabel is the volume label given to the memory-backed volume.
	DefaultLabel = "TierCache"

	// DefaultFallbackPath is used when no memory-backed volume can be created.
	DefaultFallbackPath = "/tmp/tiercache"

	// DefaultMountDir is where the linux tmpfs volume is mounted.
	DefaultMountDir = "/mnt/tiercache"

	// DefaultCommandTimeout bounds OS queries, volume and tuning commands.
	DefaultCommandTimeout = 60 * time.Second

	// DefaultCopyTimeout bounds a single precache copy.
	DefaultCopyTimeout = 10 * time.Minute

	// DefaultLogLevel is the file log level.
	DefaultLogLevel = "info"

	// DefaultLogMaxSize is the log rotation threshold.
	DefaultLogMaxSize = "5MB"

	// DefaultLogMaxBackups is the number of rotated log files kept.
	DefaultLogMaxBackups = 3
)

// darwinSources are framework directories copied into tier1/system on macOS.
var darwinSources = []string{
	"/System/Library/Frameworks/Metal.framework",
	"/System/Library/Frameworks/MetalPerformanceShaders.framework",
	"/System/Library/Frameworks/CoreML.framework",
	"/System/Library/Frameworks/Accelerate.framework",
	"/System/Library/Frameworks/AppKit.framework",
	"/System/Library/Frameworks/Foundation.framework",
}

// linuxSources are shared library directories copied into tier1/system on
// linux. The dri directory is only included for architectures with a known
// multiarch triplet.
func linuxSources(goarch string) []string {
	sources := []string{
		"/usr/share/vulkan/icd.d",
		"/etc/ld.so.cache",
	}
	triplets := map[string]string{
		"amd64": "x86_64-linux-gnu",
		"arm64": "aarch64-linux-gnu",
	}
	if triplet, ok := triplets[goarch]; ok {
		sources = append([]string{path.Join("/usr/lib", triplet, "dri")}, sources...)
	}
	return sources
}

// DefaultSources returns the precache source list for an operating system
// on the running architecture.
func DefaultSources(goos string) []string {
	return defaultSources(goos, runtime.GOARCH)
}

func defaultSources(goos, goarch string) []string {
	switch goos {
	case "darwin":
		return append([]string(nil), darwinSources...)
	case "linux":
		return linuxSources(goarch)
	default:
		return nil
	}
}

// DefaultFilesystem returns the filesystem used to format the memory volume.
func DefaultFilesystem(goos string) string {
	if goos == "linux" {
		return "tmpfs"
	}
	return "APFS"
}
