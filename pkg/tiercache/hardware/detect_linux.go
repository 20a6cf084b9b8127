//go:build linux

package hardware

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// virtualBlockPrefixes are block devices that never back the root filesystem.
var virtualBlockPrefixes = []string{"loop", "ram", "zram", "dm-", "sr"}

// detect reads procfs and sysfs for memory, CPU and storage, and asks lspci
// for the display adapter. Linux exposes no portable GPU core count, so
// GPUCores is left for normalize to default.
func (p *Prober) detect(ctx context.Context) Profile {
	var profile Profile

	if f, err := os.Open(filepath.Join(p.procRoot, "meminfo")); err != nil {
		p.warn(&profile, "meminfo", err)
	} else {
		total, err := parseMeminfo(f)
		_ = f.Close()
		if err != nil {
			p.warn(&profile, "meminfo", err)
		} else {
			profile.RAMBytes = total
		}
	}

	profile.CPUThreads = runtime.NumCPU()
	if f, err := os.Open(filepath.Join(p.procRoot, "cpuinfo")); err != nil {
		p.warn(&profile, "cpuinfo", err)
	} else {
		info, err := parseCPUInfo(f)
		_ = f.Close()
		if err != nil {
			p.warn(&profile, "cpuinfo", err)
		} else {
			profile.CPUBrand = info.brand
			profile.CPUCores = info.cores
			if info.logical > 0 {
				profile.CPUThreads = info.logical
			}
			// arm64 kernels publish no core topology in cpuinfo.
			if profile.CPUCores == 0 {
				p.logger.Debug("cpuinfo has no core topology, counting logical CPUs", "threads", profile.CPUThreads)
				profile.CPUCores = profile.CPUThreads
			}
		}
	}

	profile.Arch = machine()
	profile.GPUName = p.gpuName(ctx)
	profile.StorageKind, profile.BlockDevice = p.storage()

	return profile
}

// gpuName returns the first VGA or 3D controller reported by lspci.
func (p *Prober) gpuName(ctx context.Context) string {
	out, err := p.cmd.Run(ctx, "lspci")
	if err != nil {
		p.logger.Debug("lspci unavailable", "error", err)
		return ""
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "VGA compatible controller") && !strings.Contains(line, "3D controller") {
			continue
		}
		// "00:02.0 VGA compatible controller: Intel Corporation ..."
		if _, name, ok := strings.Cut(line, ": "); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

// storage reports the kind and device path of the first physical block device.
func (p *Prober) storage() (kind, device string) {
	entries, err := os.ReadDir(filepath.Join(p.sysRoot, "block"))
	if err != nil {
		return "", ""
	}
	for _, e := range entries {
		if isVirtualBlock(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(p.sysRoot, "block", e.Name(), "queue", "rotational"))
		if err != nil {
			continue
		}
		return storageKind(string(data)), "/dev/" + e.Name()
	}
	return "", ""
}

func isVirtualBlock(name string) bool {
	for _, prefix := range virtualBlockPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
