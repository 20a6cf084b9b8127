package precache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jamesainslie/tiercache/pkg/tiercache/volume"
	"github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCopier records copies. When barrier is set, every Copy waits until
// barrier copies are in flight, proving they run concurrently.
type fakeCopier struct {
	mu      sync.Mutex
	copies  map[string]string
	fail    map[string]bool
	barrier int
	started int
	ready   chan struct{}
}

func newFakeCopier(barrier int) *fakeCopier {
	return &fakeCopier{
		copies:  make(map[string]string),
		fail:    make(map[string]bool),
		barrier: barrier,
		ready:   make(chan struct{}),
	}
}

func (f *fakeCopier) Copy(_ context.Context, src, dst string) error {
	f.mu.Lock()
	f.started++
	if f.started == f.barrier {
		close(f.ready)
	}
	f.mu.Unlock()

	if f.barrier > 0 {
		select {
		case <-f.ready:
		case <-time.After(5 * time.Second):
			return errors.New("copies did not run concurrently")
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[src] {
		return errors.New("cp: permission denied")
	}
	f.copies[src] = dst
	return nil
}

func sourcesFS(t *testing.T, paths ...string) core.FS {
	t.Helper()
	fsys := billy.NewMemory()
	for _, p := range paths {
		require.NoError(t, fsys.MkdirAll(p, 0o755))
	}
	return fsys
}

var testVolume = volume.CacheVolume{MountPath: "/Volumes/TierCache", Backing: volume.MemoryBacked}

func TestRun_CopiesExistingSources(t *testing.T) {
	sources := []string{
		"/System/Library/Frameworks/Metal.framework",
		"/System/Library/Frameworks/Missing.framework",
		"/System/Library/Frameworks/CoreML.framework",
	}
	fsys := sourcesFS(t, sources[0], sources[2])
	copier := newFakeCopier(2)

	result := NewLoader(copier, fsys, sources).Run(context.Background(), testVolume)

	assert.Equal(t, Result{Attempted: 2, Copied: 2, Skipped: 1}, result)
	assert.Equal(t, "/Volumes/TierCache/tier1/system/Metal.framework", copier.copies[sources[0]])
	assert.Equal(t, "/Volumes/TierCache/tier1/system/CoreML.framework", copier.copies[sources[2]])
}

func TestRun_FailedCopyIsNotCounted(t *testing.T) {
	sources := []string{"/opt/a", "/opt/b", "/opt/c"}
	copier := newFakeCopier(3)
	copier.fail["/opt/b"] = true

	result := NewLoader(copier, sourcesFS(t, sources...), sources).Run(context.Background(), testVolume)

	assert.Equal(t, 3, result.Attempted)
	assert.Equal(t, 2, result.Copied)

	var copied []string
	for src := range copier.copies {
		copied = append(copied, src)
	}
	sort.Strings(copied)
	assert.Equal(t, []string{"/opt/a", "/opt/c"}, copied)
}

func TestRun_EmptySources(t *testing.T) {
	copier := newFakeCopier(0)

	result := NewLoader(copier, billy.NewMemory(), nil).Run(context.Background(), testVolume)

	assert.Equal(t, Result{}, result)
	assert.Zero(t, copier.started)
}

func TestRun_AllMissing(t *testing.T) {
	copier := newFakeCopier(0)

	result := NewLoader(copier, billy.NewMemory(), []string{"/nope", "/also/nope"}).Run(context.Background(), testVolume)

	assert.Equal(t, Result{Skipped: 2}, result)
	assert.Zero(t, copier.started)
}
