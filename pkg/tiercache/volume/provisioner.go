package volume

import (
	"context"

	"github.com/jamesainslie/tiercache/pkg/tiercache/logging"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
)

// Options configures a Provisioner.
type Options struct {
	// Label names the memory-backed volume.
	Label string

	// Filesystem is passed to Manager.Format.
	Filesystem string

	// FallbackPath is the directory used when no memory volume is available.
	FallbackPath string
}

// Provisioner creates the cache volume and its layout.
type Provisioner struct {
	manager Manager
	fs      core.FS
	opts    Options
	logger  *logging.Logger
}

// NewProvisioner returns a Provisioner. fsys is used for the layout and
// must see the same paths the manager mounts.
func NewProvisioner(manager Manager, fsys core.FS, opts Options) *Provisioner {
	return &Provisioner{
		manager: manager,
		fs:      fsys,
		opts:    opts,
		logger:  logging.Get("volume"),
	}
}

// Provision returns a ready volume of sizeMB. A memory-backed volume is
// preferred; any failure creating it (attach, format or layout) detaches
// what was created and falls back to FallbackPath. The only error returned
// is CodeUnavailable, when the fallback layout cannot be created either.
func (p *Provisioner) Provision(ctx context.Context, sizeMB int) (CacheVolume, error) {
	vol, err := p.provisionMemory(ctx, sizeMB)
	if err == nil {
		p.logger.Info("memory-backed volume ready",
			"mount", vol.MountPath, "device", vol.Device, "size_mb", sizeMB)
		return vol, nil
	}

	p.logger.Warn("memory-backed volume unavailable, using fallback directory",
		"error", err, "fallback", p.opts.FallbackPath)

	vol = CacheVolume{
		MountPath: p.opts.FallbackPath,
		Backing:   FilesystemFallback,
		SizeMB:    sizeMB,
	}
	if err := CreateLayout(p.fs, vol.MountPath); err != nil {
		return CacheVolume{}, platformerrors.WrapWithContext(err, platformerrors.CodeUnavailable,
			"no cache storage could be created", map[string]interface{}{
				"fallback": p.opts.FallbackPath,
			})
	}

	p.logger.Info("fallback volume ready", "mount", vol.MountPath)
	return vol, nil
}

func (p *Provisioner) provisionMemory(ctx context.Context, sizeMB int) (CacheVolume, error) {
	device, err := p.manager.Attach(ctx, Sectors(sizeMB))
	if err != nil {
		return CacheVolume{}, err
	}

	mount, err := p.manager.Format(ctx, device, p.opts.Filesystem, p.opts.Label)
	if err != nil {
		p.detach(ctx, device)
		return CacheVolume{}, err
	}

	if err := CreateLayout(p.fs, mount); err != nil {
		p.detach(ctx, device)
		return CacheVolume{}, err
	}

	return CacheVolume{
		MountPath: mount,
		Backing:   MemoryBacked,
		SizeMB:    sizeMB,
		Device:    device,
	}, nil
}

// detach removes a partially provisioned device. Failure is only logged.
func (p *Provisioner) detach(ctx context.Context, device string) {
	if err := p.manager.Detach(ctx, device); err != nil {
		p.logger.Warn("failed to detach partial volume", "device", device, "error", err)
	}
}
