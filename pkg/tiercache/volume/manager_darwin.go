//go:build darwin

package volume

import (
	"github.com/jamesainslie/tiercache/pkg/tiercache/shell"
	"github.com/jmgilman/go/fs/core"
)

func newPlatformManager(cmd shell.Commander, _ core.FS, _ string) Manager {
	return NewHdiutilManager(cmd)
}
