// Package shell runs host utilities (hdiutil, diskutil, sysctl, system_profiler,
// mount, cp) for tiercache. Every call gets its own executor clone, a context,
// and a timeout, so callers may run commands from several goroutines.
package shell

import (
	"context"
	"strings"
	"time"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/exec"
)

// DefaultTimeout bounds a single external command.
const DefaultTimeout = 60 * time.Second

// Commander runs an external command and returns its trimmed stdout.
type Commander interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// Command is the production Commander backed by github.com/jmgilman/go/exec.
type Command struct {
	base    *exec.Command
	timeout time.Duration
}

// New returns a Command that inherits the parent environment.
// A timeout of zero or less selects DefaultTimeout.
func New(timeout time.Duration) *Command {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Command{
		base:    exec.New(exec.WithInheritEnv()),
		timeout: timeout,
	}
}

// Timeout returns the per-command timeout.
func (c *Command) Timeout() time.Duration {
	return c.timeout
}

// Run executes args[0] with the remaining arguments.
// Failures are returned as PlatformErrors with CodeExecutionFailed (or
// CodeTimeout when the deadline passed) wrapping the *exec.ExecError.
func (c *Command) Run(ctx context.Context, args ...string) (string, error) {
	if len(args) == 0 {
		return "", platformerrors.New(platformerrors.CodeInvalidInput, "no command given")
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.base.Clone().WithContext(runCtx).Run(args...)
	if err != nil {
		code := platformerrors.CodeExecutionFailed
		if runCtx.Err() == context.DeadlineExceeded {
			code = platformerrors.CodeTimeout
		}
		return "", platformerrors.WrapWithContext(err, code, args[0]+" failed", map[string]interface{}{
			"args":   strings.Join(args[1:], " "),
			"stderr": stderrOf(err),
		})
	}

	return strings.TrimSpace(result.Stdout), nil
}

// stderrOf extracts the captured stderr from an exec failure.
func stderrOf(err error) string {
	var execErr *exec.ExecError
	if platformerrors.As(err, &execErr) {
		return strings.TrimSpace(execErr.Stderr)
	}
	return ""
}
