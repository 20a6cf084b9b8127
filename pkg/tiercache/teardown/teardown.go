// Package teardown releases the cache volume when the process ends, whether
// it returns normally or is interrupted.
package teardown

import (
	"context"
	"os"
	"sync"

	"github.com/jamesainslie/tiercache/pkg/tiercache/logging"
	"github.com/jamesainslie/tiercache/pkg/tiercache/volume"
)

// SignalExitCode is the process exit status after an interrupt.
const SignalExitCode = 130

// Detacher removes a memory-backed device. volume.Manager satisfies it.
type Detacher interface {
	Detach(ctx context.Context, device string) error
}

// Guard owns the cache volume for the lifetime of the process.
type Guard struct {
	detacher Detacher
	logger   *logging.Logger

	mu   sync.Mutex
	vol  *volume.CacheVolume
	once sync.Once
	done chan struct{}
}

// NewGuard returns an unarmed Guard.
func NewGuard(detacher Detacher) *Guard {
	return &Guard{
		detacher: detacher,
		logger:   logging.Get("teardown"),
		done:     make(chan struct{}),
	}
}

// Arm hands vol to the guard. Call it once provisioning succeeded. A guard
// may be watching for signals before it is armed; a release that happens
// first tears nothing down.
func (g *Guard) Arm(vol volume.CacheVolume) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vol = &vol
}

// Release tears the volume down. Only the first call does any work, so it
// is safe to call from both a deferred cleanup and a signal handler.
// Memory-backed volumes are detached; a fallback directory is left in place.
func (g *Guard) Release(ctx context.Context) {
	g.once.Do(func() {
		defer close(g.done)

		g.mu.Lock()
		vol := g.vol
		g.mu.Unlock()

		if vol == nil {
			g.logger.Debug("release before arm, nothing to tear down")
			return
		}

		if vol.Backing != volume.MemoryBacked {
			g.logger.Info("leaving fallback directory in place", "path", vol.MountPath)
			return
		}

		if err := g.detacher.Detach(ctx, vol.Device); err != nil {
			g.logger.Warn("failed to detach cache volume", "device", vol.Device, "error", err)
			return
		}
		g.logger.Info("cache volume detached", "device", vol.Device, "mount", vol.MountPath)
	})
}

// Done is closed once Release has finished.
func (g *Guard) Done() <-chan struct{} {
	return g.done
}

// Watch waits for a signal, releases the volume and calls exit with
// SignalExitCode. It returns without releasing if signals is closed.
// Run it in its own goroutine.
func (g *Guard) Watch(signals <-chan os.Signal, exit func(int)) {
	sig, ok := <-signals
	if !ok {
		return
	}

	g.logger.Info("signal received, tearing down", "signal", sig.String())
	g.Release(context.Background())
	exit(SignalExitCode)
}
