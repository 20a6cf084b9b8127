// Package volume provisions the tiered cache volume: a memory-backed device
// when the platform allows it, otherwise a plain directory. Either way the
// fixed tier layout is created before the volume is handed out.
package volume

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jmgilman/go/fs/core"
)

// Backing describes what stores the cache.
type Backing int

const (
	// MemoryBacked is a RAM disk (hdiutil ram:// on macOS, tmpfs on linux).
	MemoryBacked Backing = iota

	// FilesystemFallback is an ordinary directory on the root filesystem.
	FilesystemFallback
)

func (b Backing) String() string {
	switch b {
	case MemoryBacked:
		return "memory-backed"
	case FilesystemFallback:
		return "filesystem fallback"
	default:
		return "unknown"
	}
}

// CacheVolume is a provisioned cache. It is immutable once returned.
type CacheVolume struct {
	MountPath string
	Backing   Backing
	SizeMB    int

	// Device is the attached device identifier, empty for the fallback.
	Device string
}

// Path joins elem onto the mount path.
func (v CacheVolume) Path(elem ...string) string {
	return filepath.Join(append([]string{v.MountPath}, elem...)...)
}

// Tier is one top-level cache directory and its fixed subdirectories.
type Tier struct {
	Name    string
	Subdirs []string
}

// Layout is the directory structure created on every volume.
var Layout = []Tier{
	{Name: "tier1", Subdirs: []string{"apps", "system", "gpu", "neural"}},
	{Name: "tier2", Subdirs: []string{"documents", "media", "code"}},
	{Name: "tier3", Subdirs: []string{"metadata", "indices", "logs"}},
}

// Directory permissions. The root is world-readable; tiers are owner-only.
const (
	RootPerm fs.FileMode = 0o755
	TierPerm fs.FileMode = 0o700
)

// Dirs returns every tier and subdirectory path under root, tiers first.
func Dirs(root string) []string {
	var dirs []string
	for _, tier := range Layout {
		dirs = append(dirs, filepath.Join(root, tier.Name))
		for _, sub := range tier.Subdirs {
			dirs = append(dirs, filepath.Join(root, tier.Name, sub))
		}
	}
	return dirs
}

// CreateLayout creates root and the tier layout beneath it. Existing
// directories are reused. When fsys can change modes the permissions are
// enforced regardless of umask.
func CreateLayout(fsys core.FS, root string) error {
	if err := mkdir(fsys, root, RootPerm); err != nil {
		return err
	}
	for _, dir := range Dirs(root) {
		if err := mkdir(fsys, dir, TierPerm); err != nil {
			return err
		}
	}
	return nil
}

func mkdir(fsys core.FS, path string, perm fs.FileMode) error {
	if err := fsys.MkdirAll(path, perm); err != nil {
		return err
	}
	return chmod(fsys, path, perm)
}

// chmod sets perm on a directory. The billy wrappers expose no mode
// changes, so local filesystems are changed through the OS directly.
func chmod(fsys core.FS, path string, perm fs.FileMode) error {
	if mfs, ok := fsys.(core.MetadataFS); ok {
		return mfs.Chmod(path, perm)
	}
	if fsys.Type() == core.FSTypeLocal {
		return os.Chmod(path, perm)
	}
	return nil
}

// Missing lists the layout directories that do not exist on vol.
func Missing(fsys core.FS, vol CacheVolume) []string {
	var missing []string
	for _, dir := range append([]string{vol.MountPath}, Dirs(vol.MountPath)...) {
		info, err := fsys.Stat(dir)
		if err != nil || !info.IsDir() {
			missing = append(missing, dir)
		}
	}
	return missing
}
