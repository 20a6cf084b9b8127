package report

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/jamesainslie/tiercache/pkg/tiercache/volume"
)

// TierUsage is the content measured under one tier directory.
type TierUsage struct {
	Name  string
	Files int64
	Bytes int64
}

// MeasureTiers walks each tier of vol and totals its regular files.
// Unreadable entries are skipped. Symlinks are not followed.
func MeasureTiers(ctx context.Context, vol volume.CacheVolume) ([]TierUsage, error) {
	usage := make([]TierUsage, 0, len(volume.Layout))

	for _, tier := range volume.Layout {
		u, err := measure(ctx, filepath.Join(vol.MountPath, tier.Name))
		if err != nil {
			return usage, err
		}
		u.Name = tier.Name
		usage = append(usage, u)
	}

	return usage, nil
}

func measure(ctx context.Context, root string) (TierUsage, error) {
	var files, bytes atomic.Int64

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		files.Add(1)
		bytes.Add(info.Size())
		return nil
	})
	if err != nil && !errors.Is(err, fastwalk.ErrSkipFiles) {
		return TierUsage{}, err
	}

	return TierUsage{Files: files.Load(), Bytes: bytes.Load()}, nil
}

// Total sums usage across tiers.
func Total(usage []TierUsage) TierUsage {
	var t TierUsage
	for _, u := range usage {
		t.Files += u.Files
		t.Bytes += u.Bytes
	}
	return t
}
