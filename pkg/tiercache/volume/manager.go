package volume

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jamesainslie/tiercache/pkg/tiercache/shell"
	"github.com/jmgilman/go/fs/core"
)

// SectorSize is the block size used to express RAM disk sizes.
const SectorSize = 512

// Sectors converts a size in MB to 512-byte sectors.
func Sectors(sizeMB int) int64 {
	return int64(sizeMB) * 1024 * 1024 / SectorSize
}

// Manager creates and removes memory-backed devices.
type Manager interface {
	// Attach creates an unformatted device of the given number of sectors
	// and returns its identifier.
	Attach(ctx context.Context, sectors int64) (string, error)

	// Format puts a filesystem on device and returns where it is mounted.
	Format(ctx context.Context, device, filesystem, label string) (string, error)

	// Detach removes device and releases its memory.
	Detach(ctx context.Context, device string) error
}

// NewManager returns the Manager for the running platform. mountDir is
// only used where the platform needs an explicit mount point.
func NewManager(cmd shell.Commander, fsys core.FS, mountDir string) Manager {
	return newPlatformManager(cmd, fsys, mountDir)
}

// HdiutilManager manages RAM disks with hdiutil and diskutil.
type HdiutilManager struct {
	cmd shell.Commander
}

// NewHdiutilManager returns a Manager driving hdiutil through cmd.
func NewHdiutilManager(cmd shell.Commander) *HdiutilManager {
	return &HdiutilManager{cmd: cmd}
}

// Attach runs `hdiutil attach -nomount ram://<sectors>` and returns the
// device node it prints, e.g. /dev/disk4.
func (m *HdiutilManager) Attach(ctx context.Context, sectors int64) (string, error) {
	out, err := m.cmd.Run(ctx, "hdiutil", "attach", "-nomount", "ram://"+strconv.FormatInt(sectors, 10))
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("hdiutil attach returned no device")
	}
	return out, nil
}

// Format erases device with diskutil, which also mounts it under /Volumes.
func (m *HdiutilManager) Format(ctx context.Context, device, filesystem, label string) (string, error) {
	if _, err := m.cmd.Run(ctx, "diskutil", "erasevolume", filesystem, label, device); err != nil {
		return "", err
	}
	return "/Volumes/" + label, nil
}

// Detach ejects device.
func (m *HdiutilManager) Detach(ctx context.Context, device string) error {
	_, err := m.cmd.Run(ctx, "hdiutil", "detach", device)
	return err
}

// TmpfsManager mounts a size-limited tmpfs. The device identifier is the
// mount directory itself.
type TmpfsManager struct {
	cmd      shell.Commander
	fs       core.FS
	mountDir string
}

// NewTmpfsManager returns a Manager that mounts tmpfs at mountDir.
func NewTmpfsManager(cmd shell.Commander, fsys core.FS, mountDir string) *TmpfsManager {
	return &TmpfsManager{cmd: cmd, fs: fsys, mountDir: mountDir}
}

// Attach creates the mount directory and mounts a tmpfs of sectors*512 bytes.
func (m *TmpfsManager) Attach(ctx context.Context, sectors int64) (string, error) {
	if err := m.fs.MkdirAll(m.mountDir, RootPerm); err != nil {
		return "", fmt.Errorf("creating mount point %s: %w", m.mountDir, err)
	}

	opts := fmt.Sprintf("size=%d,mode=%o", sectors*SectorSize, RootPerm)
	if _, err := m.cmd.Run(ctx, "mount", "-t", "tmpfs", "-o", opts, "tiercache", m.mountDir); err != nil {
		return "", err
	}
	return m.mountDir, nil
}

// Format is a no-op: tmpfs is ready once mounted and carries no label.
func (m *TmpfsManager) Format(_ context.Context, device, _, _ string) (string, error) {
	return device, nil
}

// Detach unmounts the tmpfs, discarding its contents.
func (m *TmpfsManager) Detach(ctx context.Context, device string) error {
	_, err := m.cmd.Run(ctx, "umount", device)
	return err
}
