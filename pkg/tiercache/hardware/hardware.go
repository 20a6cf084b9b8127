// Package hardware probes the host for the metrics tiercache sizes its cache
// from: memory, CPU cores and threads, GPU cores, plus descriptive strings for
// the report. Individual query failures never abort a probe; they leave a
// default in place and are recorded as warnings on the profile.
package hardware

import (
	"context"
	"fmt"
	"runtime"

	"github.com/jamesainslie/tiercache/pkg/tiercache/logging"
	"github.com/jamesainslie/tiercache/pkg/tiercache/shell"
)

// GiB is one binary gigabyte in bytes.
const GiB int64 = 1024 * 1024 * 1024

// Fallback values used when a query is unavailable.
const (
	DefaultRAMGB    = 8
	DefaultCPUCores = 4
	DefaultGPUCores = 8

	unknown = "unknown"
)

// Profile contains the detected hardware. It is populated once and passed
// by value afterwards.
type Profile struct {
	// RAMBytes is the total physical memory in bytes.
	RAMBytes int64

	// RAMGB is RAMBytes in whole GiB, rounded down.
	RAMGB int

	// CPUCores is the number of physical CPU cores.
	CPUCores int

	// CPUThreads is the number of logical CPUs.
	CPUThreads int

	// GPUCores is the number of GPU cores (Apple GPUs report this directly).
	GPUCores int

	// Arch is the machine architecture tag, e.g. "arm64" or "x86_64".
	Arch string

	CPUBrand    string
	GPUName     string
	StorageKind string

	// BlockDevice is the device path of the first physical disk, e.g.
	// "/dev/nvme0n1". Only set on linux.
	BlockDevice string

	// Warnings lists the queries that failed and fell back to defaults.
	Warnings []string
}

// Defaults returns the profile used when nothing can be detected.
func Defaults() Profile {
	return Profile{}.normalize()
}

// normalize fills unset fields with defaults and derives RAMGB.
func (p Profile) normalize() Profile {
	if p.RAMBytes <= 0 {
		p.RAMBytes = DefaultRAMGB * GiB
	}
	p.RAMGB = int(p.RAMBytes / GiB)

	if p.CPUCores <= 0 {
		p.CPUCores = DefaultCPUCores
	}
	if p.CPUThreads <= 0 {
		p.CPUThreads = p.CPUCores
	}
	if p.GPUCores <= 0 {
		p.GPUCores = DefaultGPUCores
	}
	if p.Arch == "" {
		p.Arch = runtime.GOARCH
	}
	if p.CPUBrand == "" {
		p.CPUBrand = unknown
	}
	if p.GPUName == "" {
		p.GPUName = unknown
	}
	if p.StorageKind == "" {
		p.StorageKind = unknown
	}
	return p
}

// Prober runs the platform queries.
type Prober struct {
	cmd    shell.Commander
	logger *logging.Logger

	// Filesystem roots, overridable in tests.
	procRoot string
	sysRoot  string
}

// NewProber returns a Prober that runs external queries through cmd.
func NewProber(cmd shell.Commander) *Prober {
	return &Prober{
		cmd:      cmd,
		logger:   logging.Get("hardware"),
		procRoot: "/proc",
		sysRoot:  "/sys",
	}
}

// Detect queries the host. It always returns a usable profile.
func (p *Prober) Detect(ctx context.Context) Profile {
	profile := p.detect(ctx).normalize()

	p.logger.Info("hardware detected",
		"ram_gb", profile.RAMGB,
		"cpu_cores", profile.CPUCores,
		"cpu_threads", profile.CPUThreads,
		"gpu_cores", profile.GPUCores,
		"arch", profile.Arch,
		"warnings", len(profile.Warnings),
	)

	return profile
}

// warn records a failed query on the profile.
func (p *Prober) warn(profile *Profile, query string, err error) {
	msg := fmt.Sprintf("%s: %v", query, err)
	profile.Warnings = append(profile.Warnings, msg)
	p.logger.Warn("hardware query failed, using default", "query", query, "error", err)
}
