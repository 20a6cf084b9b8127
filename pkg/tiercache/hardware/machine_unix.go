//go:build unix

package hardware

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// machine returns the uname machine field, e.g. "arm64" or "x86_64".
func machine() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return runtime.GOARCH
	}
	if m := unix.ByteSliceToString(u.Machine[:]); m != "" {
		return m
	}
	return runtime.GOARCH
}
