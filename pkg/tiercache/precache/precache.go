// Package precache copies known hot files into tier 1 of a cache volume.
//
// Copies run concurrently, one per source, and are joined before Run
// returns. A failed copy is logged and left out of the copied count; it
// never fails the run.
package precache

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/jamesainslie/tiercache/pkg/tiercache/logging"
	"github.com/jamesainslie/tiercache/pkg/tiercache/shell"
	"github.com/jamesainslie/tiercache/pkg/tiercache/volume"
	"github.com/jmgilman/go/fs/core"
	"golang.org/x/sync/errgroup"
)

// Copier copies src, recursively, to dst.
type Copier interface {
	Copy(ctx context.Context, src, dst string) error
}

// CommandCopier copies with `cp -R`.
type CommandCopier struct {
	cmd shell.Commander
}

// NewCommandCopier returns a Copier running cp through cmd. cmd's timeout
// bounds each copy.
func NewCommandCopier(cmd shell.Commander) *CommandCopier {
	return &CommandCopier{cmd: cmd}
}

// Copy implements Copier.
func (c *CommandCopier) Copy(ctx context.Context, src, dst string) error {
	_, err := c.cmd.Run(ctx, "cp", "-R", src, dst)
	return err
}

// Result summarizes a precache run.
type Result struct {
	// Attempted is the number of sources that existed and were copied.
	Attempted int

	// Copied is the number of copies that succeeded.
	Copied int

	// Skipped is the number of sources that did not exist.
	Skipped int
}

// Loader copies a fixed source list into a volume.
type Loader struct {
	copier  Copier
	fs      core.FS
	sources []string
	logger  *logging.Logger
}

// NewLoader returns a Loader. fsys is used to check which sources exist.
func NewLoader(copier Copier, fsys core.FS, sources []string) *Loader {
	return &Loader{
		copier:  copier,
		fs:      fsys,
		sources: sources,
		logger:  logging.Get("precache"),
	}
}

// Run copies every existing source to <mount>/tier1/system/<basename>.
func (l *Loader) Run(ctx context.Context, vol volume.CacheVolume) Result {
	var result Result
	if len(l.sources) == 0 {
		return result
	}

	dstDir := vol.Path("tier1", "system")

	var (
		g      errgroup.Group
		copied atomic.Int64
	)

	for _, src := range l.sources {
		if exists, err := l.fs.Exists(src); err != nil || !exists {
			l.logger.Debug("precache source not present", "source", src)
			result.Skipped++
			continue
		}

		result.Attempted++
		dst := filepath.Join(dstDir, filepath.Base(src))

		g.Go(func() error {
			if err := l.copier.Copy(ctx, src, dst); err != nil {
				l.logger.Warn("precache copy failed", "source", src, "error", err)
				return nil
			}
			copied.Add(1)
			l.logger.Debug("precached", "source", src, "destination", dst)
			return nil
		})
	}

	// Copy errors are handled inside each goroutine.
	_ = g.Wait()
	result.Copied = int(copied.Load())

	l.logger.Info("precache complete",
		"attempted", result.Attempted, "copied", result.Copied, "skipped", result.Skipped)

	return result
}
