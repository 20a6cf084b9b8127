//go:build !darwin && !linux

package volume

import (
	"context"
	"runtime"

	"github.com/jamesainslie/tiercache/pkg/tiercache/shell"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
)

// unsupportedManager always fails, which sends provisioning to the fallback.
type unsupportedManager struct{}

func newPlatformManager(shell.Commander, core.FS, string) Manager {
	return unsupportedManager{}
}

func (unsupportedManager) Attach(context.Context, int64) (string, error) {
	return "", platformerrors.Newf(platformerrors.CodeNotImplemented,
		"memory-backed volumes are not supported on %s", runtime.GOOS)
}

func (unsupportedManager) Format(context.Context, string, string, string) (string, error) {
	return "", platformerrors.New(platformerrors.CodeNotImplemented, "format not supported")
}

func (unsupportedManager) Detach(context.Context, string) error {
	return nil
}
