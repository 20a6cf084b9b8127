//go:build darwin

package hardware

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// detect queries sysctl for memory and CPU topology, and system_profiler for
// the GPU and the root storage device.
func (p *Prober) detect(ctx context.Context) Profile {
	var profile Profile

	if memsize, err := unix.SysctlUint64("hw.memsize"); err != nil {
		p.warn(&profile, "hw.memsize", err)
	} else {
		profile.RAMBytes = int64(memsize)
	}

	if cores, err := unix.SysctlUint32("hw.physicalcpu"); err != nil {
		p.warn(&profile, "hw.physicalcpu", err)
	} else {
		profile.CPUCores = int(cores)
	}

	if threads, err := unix.SysctlUint32("hw.logicalcpu"); err != nil {
		p.warn(&profile, "hw.logicalcpu", err)
	} else {
		profile.CPUThreads = int(threads)
	}

	if brand, err := unix.Sysctl("machdep.cpu.brand_string"); err == nil {
		profile.CPUBrand = brand
	}

	profile.Arch = machine()

	if out, err := p.cmd.Run(ctx, "system_profiler", "-json", "SPDisplaysDataType"); err != nil {
		p.warn(&profile, "SPDisplaysDataType", err)
	} else if name, cores, err := parseDisplays([]byte(out)); err != nil {
		p.warn(&profile, "SPDisplaysDataType", err)
	} else {
		profile.GPUName = name
		profile.GPUCores = cores
		if cores == 0 {
			p.warn(&profile, "SPDisplaysDataType", fmt.Errorf("no GPU core count reported"))
		}
	}

	if out, err := p.cmd.Run(ctx, "system_profiler", "-json", "SPStorageDataType"); err == nil {
		if kind, err := parseStorage([]byte(out)); err == nil {
			profile.StorageKind = kind
		}
	}

	return profile
}
