// Package sizing derives the cache volume size and its tier split from the
// detected hardware. The policy is a pure function of RAM, CPU cores and GPU
// cores: a per-resource contribution, capped at a quarter of RAM and never
// smaller than a fixed floor.
package sizing

import "github.com/jamesainslie/tiercache/pkg/tiercache/hardware"

// Per-unit contributions and bounds, in MB.
const (
	MBPerRAMGB   = 128
	MBPerCPUCore = 64
	MBPerGPUCore = 32

	// CapMBPerRAMGB caps the total at ramGB*256 MB, i.e. 25% of RAM.
	CapMBPerRAMGB = 256

	// MinTotalMB is the smallest cache ever provisioned. It wins over the cap.
	MinTotalMB = 512
)

// Tier shares of the total, in percent.
const (
	Tier1Percent = 60
	Tier2Percent = 30
	Tier3Percent = 10
)

// Result is the computed cache size and its split across tiers.
// Tier sizes are truncated, so their sum may fall short of TotalMB.
type Result struct {
	TotalMB int
	Tier1MB int
	Tier2MB int
	Tier3MB int
}

// ComputeCacheSize applies the sizing policy to the given hardware metrics.
func ComputeCacheSize(ramGB, cpuCores, gpuCores int) Result {
	total := ramGB*MBPerRAMGB + cpuCores*MBPerCPUCore + gpuCores*MBPerGPUCore
	total = min(total, ramGB*CapMBPerRAMGB)
	total = max(total, MinTotalMB)

	return Result{
		TotalMB: total,
		Tier1MB: total * Tier1Percent / 100,
		Tier2MB: total * Tier2Percent / 100,
		Tier3MB: total * Tier3Percent / 100,
	}
}

// Calculate sizes the cache for a detected hardware profile.
func Calculate(p hardware.Profile) Result {
	return ComputeCacheSize(p.RAMGB, p.CPUCores, p.GPUCores)
}
