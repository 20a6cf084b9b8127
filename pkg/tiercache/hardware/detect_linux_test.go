//go:build linux

package hardware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommander struct {
	out map[string]string
}

func (f fakeCommander) Run(_ context.Context, args ...string) (string, error) {
	if out, ok := f.out[args[0]]; ok {
		return out, nil
	}
	return "", errors.New("command not found")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestProber(t *testing.T, cmd fakeCommander) *Prober {
	root := t.TempDir()
	p := NewProber(cmd)
	p.procRoot = filepath.Join(root, "proc")
	p.sysRoot = filepath.Join(root, "sys")
	return p
}

func TestDetect_Linux(t *testing.T) {
	p := newTestProber(t, fakeCommander{out: map[string]string{
		"lspci": "00:01.0 Host bridge: Intel Corporation Device\n" +
			"00:02.0 VGA compatible controller: Intel Corporation UHD Graphics 630\n",
	}})

	writeFile(t, filepath.Join(p.procRoot, "meminfo"), "MemTotal:       33554432 kB\n")
	writeFile(t, filepath.Join(p.procRoot, "cpuinfo"),
		"processor\t: 0\nmodel name\t: Test CPU\nphysical id\t: 0\ncore id\t: 0\n\n"+
			"processor\t: 1\nmodel name\t: Test CPU\nphysical id\t: 0\ncore id\t: 1\n")
	writeFile(t, filepath.Join(p.sysRoot, "block", "loop0", "queue", "rotational"), "1\n")
	writeFile(t, filepath.Join(p.sysRoot, "block", "nvme0n1", "queue", "rotational"), "0\n")

	profile := p.Detect(context.Background())

	assert.Equal(t, 32, profile.RAMGB)
	assert.Equal(t, 2, profile.CPUCores)
	assert.Equal(t, 2, profile.CPUThreads)
	assert.Equal(t, DefaultGPUCores, profile.GPUCores)
	assert.Equal(t, "Test CPU", profile.CPUBrand)
	assert.Equal(t, "Intel Corporation UHD Graphics 630", profile.GPUName)
	assert.Equal(t, "SSD", profile.StorageKind)
	assert.Equal(t, "/dev/nvme0n1", profile.BlockDevice)
	assert.Empty(t, profile.Warnings)
}

func TestDetect_LinuxWithoutCoreTopology(t *testing.T) {
	p := newTestProber(t, fakeCommander{})

	var cpuinfo string
	for i := 0; i < 16; i++ {
		cpuinfo += fmt.Sprintf("processor\t: %d\nBogoMIPS\t: 50.00\nCPU implementer\t: 0x41\nCPU part\t: 0xd0c\n\n", i)
	}
	writeFile(t, filepath.Join(p.procRoot, "meminfo"), "MemTotal:       65536000 kB\n")
	writeFile(t, filepath.Join(p.procRoot, "cpuinfo"), cpuinfo)

	profile := p.Detect(context.Background())

	assert.Equal(t, 16, profile.CPUThreads)
	assert.Equal(t, 16, profile.CPUCores)
	assert.Empty(t, profile.Warnings)
}

func TestDetect_LinuxMissingProcfs(t *testing.T) {
	p := newTestProber(t, fakeCommander{})

	profile := p.Detect(context.Background())

	assert.Equal(t, DefaultRAMGB, profile.RAMGB)
	assert.Equal(t, DefaultCPUCores, profile.CPUCores)
	assert.Positive(t, profile.CPUThreads)
	assert.Equal(t, unknown, profile.GPUName)
	assert.Equal(t, unknown, profile.StorageKind)
	assert.Empty(t, profile.BlockDevice)
	assert.Len(t, profile.Warnings, 2)
}
