// Package kernel applies best-effort kernel tuning for a cache-heavy
// workload: open-file and process limits, read-ahead, and the page-reclaim
// target. Each parameter is attempted once and its outcome recorded; a
// failure never stops the remaining parameters.
package kernel

import (
	"context"
	"strconv"
	"strings"

	"github.com/jamesainslie/tiercache/pkg/tiercache/hardware"
	"github.com/jamesainslie/tiercache/pkg/tiercache/logging"
	"github.com/jamesainslie/tiercache/pkg/tiercache/shell"
)

// Parameter is one sysctl setting.
type Parameter struct {
	Name  string
	Value string
}

// Outcome pairs a parameter with the result of applying it.
type Outcome struct {
	Parameter Parameter
	Err       error
}

// Applied reports whether the parameter was set.
func (o Outcome) Applied() bool {
	return o.Err == nil
}

// Setter writes a kernel parameter.
type Setter interface {
	Set(ctx context.Context, name, value string) error
}

// ReadAheadPrefix marks a block-device read-ahead parameter. The rest of the
// name is the device path and the value is in 512-byte sectors.
const ReadAheadPrefix = "readahead:"

// Sysctl sets parameters with `sysctl -w name=value`. Read-ahead parameters
// go through `blockdev --setra` instead.
type Sysctl struct {
	cmd shell.Commander
}

// NewSysctl returns a Setter that runs sysctl through cmd.
func NewSysctl(cmd shell.Commander) *Sysctl {
	return &Sysctl{cmd: cmd}
}

// Set implements Setter.
func (s *Sysctl) Set(ctx context.Context, name, value string) error {
	if device, ok := strings.CutPrefix(name, ReadAheadPrefix); ok {
		_, err := s.cmd.Run(ctx, "blockdev", "--setra", value, device)
		return err
	}
	_, err := s.cmd.Run(ctx, "sysctl", "-w", name+"="+value)
	return err
}

// Parameters returns the tuning set for goos, scaled by the core count.
// Unknown platforms get no parameters. On linux the read-ahead parameter is
// only included when the probe found the root block device.
func Parameters(goos string, p hardware.Profile) []Parameter {
	cores := max(p.CPUCores, 1)

	switch goos {
	case "darwin":
		return []Parameter{
			{"kern.maxfiles", itoa(262144 + cores*8192)},
			{"kern.maxfilesperproc", itoa(131072 + cores*4096)},
			{"kern.maxproc", itoa(4096 + cores*256)},
			{"kern.maxprocperuid", itoa(2048 + cores*128)},
			{"vfs.generic.readahead_max", itoa(1024 * 1024)},
			{"vm.vm_page_free_target", itoa(4000 + cores*250)},
		}
	case "linux":
		params := []Parameter{
			{"fs.file-max", itoa(2097152 + cores*65536)},
			{"fs.nr_open", itoa(1048576 + cores*32768)},
			{"kernel.pid_max", itoa(min(4194304, 32768+cores*4096))},
			{"kernel.threads-max", itoa(65536 + cores*8192)},
			{"vm.min_free_kbytes", itoa(65536 + cores*2048)},
		}
		if p.BlockDevice != "" {
			params = append(params, Parameter{ReadAheadPrefix + p.BlockDevice, itoa(min(16384, 2048+cores*512))})
		}
		return params
	default:
		return nil
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// Apply attempts every parameter exactly once, in order, and returns one
// outcome per parameter.
func Apply(ctx context.Context, setter Setter, params []Parameter) []Outcome {
	logger := logging.Get("kernel")
	outcomes := make([]Outcome, 0, len(params))

	for _, param := range params {
		err := setter.Set(ctx, param.Name, param.Value)
		if err != nil {
			logger.Warn("kernel parameter not applied", "name", param.Name, "value", param.Value, "error", err)
		} else {
			logger.Debug("kernel parameter applied", "name", param.Name, "value", param.Value)
		}
		outcomes = append(outcomes, Outcome{Parameter: param, Err: err})
	}

	return outcomes
}

// Count returns how many outcomes applied and how many failed.
func Count(outcomes []Outcome) (applied, failed int) {
	for _, o := range outcomes {
		if o.Applied() {
			applied++
		} else {
			failed++
		}
	}
	return applied, failed
}
