//go:build !unix

package shell

// IsPrivileged always reports false on platforms without a root user.
func IsPrivileged() bool {
	return false
}
