//go:build linux

package volume

import (
	"github.com/jamesainslie/tiercache/pkg/tiercache/shell"
	"github.com/jmgilman/go/fs/core"
)

func newPlatformManager(cmd shell.Commander, fsys core.FS, mountDir string) Manager {
	return NewTmpfsManager(cmd, fsys, mountDir)
}
