//go:build unix

package shell

import "golang.org/x/sys/unix"

// IsPrivileged reports whether the process runs with an effective uid of root.
func IsPrivileged() bool {
	return unix.Geteuid() == 0
}
