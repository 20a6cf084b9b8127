package main

import (
	"context"
	"io"
	"os"

	"github.com/jamesainslie/tiercache/pkg/tiercache/config"
	"github.com/jamesainslie/tiercache/pkg/tiercache/hardware"
	"github.com/jamesainslie/tiercache/pkg/tiercache/kernel"
	"github.com/jamesainslie/tiercache/pkg/tiercache/logging"
	"github.com/jamesainslie/tiercache/pkg/tiercache/precache"
	"github.com/jamesainslie/tiercache/pkg/tiercache/report"
	"github.com/jamesainslie/tiercache/pkg/tiercache/sizing"
	"github.com/jamesainslie/tiercache/pkg/tiercache/teardown"
	"github.com/jamesainslie/tiercache/pkg/tiercache/volume"
	"github.com/jmgilman/go/fs/core"
)

// app runs the provisioning stages in order: probe, size, provision,
// tune, precache, report. The volume is released when run returns or when
// a signal arrives.
type app struct {
	cfg     *config.Config
	goos    string
	runID   string
	hold    bool
	printer *report.Printer
	stdout  io.Writer
	logger  *logging.Logger

	prober  *hardware.Prober
	manager volume.Manager
	fs      core.FS
	setter  kernel.Setter
	copier  precache.Copier

	signals <-chan os.Signal
	exit    func(int)
}

func (a *app) run(ctx context.Context) error {
	a.logger.Info("tiercache starting", "goos", a.goos, "hold", a.hold)

	// Signals are handled from here on, before any volume exists.
	guard := teardown.NewGuard(a.manager)
	if a.signals != nil {
		go guard.Watch(a.signals, a.exit)
	}

	a.printer.Step("Detecting hardware")
	profile := a.prober.Detect(ctx)
	for _, w := range profile.Warnings {
		a.printer.Warn("using default for %s", w)
	}
	a.printer.Success("%d GB RAM, %d CPU cores, %d GPU cores", profile.RAMGB, profile.CPUCores, profile.GPUCores)

	sizes := sizing.Calculate(profile)
	a.logger.Info("cache sized",
		"total_mb", sizes.TotalMB, "tier1_mb", sizes.Tier1MB, "tier2_mb", sizes.Tier2MB, "tier3_mb", sizes.Tier3MB)

	a.printer.Step("Provisioning %d MB cache", sizes.TotalMB)
	vol, err := volume.NewProvisioner(a.manager, a.fs, volume.Options{
		Label:        a.cfg.Volume.Label,
		Filesystem:   a.cfg.Volume.Filesystem,
		FallbackPath: a.cfg.Volume.FallbackPath,
	}).Provision(ctx, sizes.TotalMB)
	if err != nil {
		return err
	}
	if vol.Backing == volume.MemoryBacked {
		a.printer.Success("memory-backed volume at %s", vol.MountPath)
	} else {
		a.printer.Warn("memory-backed volume unavailable, using %s", vol.MountPath)
	}

	guard.Arm(vol)
	defer guard.Release(context.Background())

	var outcomes []kernel.Outcome
	if a.cfg.Tuning.Enabled {
		a.printer.Step("Applying kernel tuning")
		outcomes = kernel.Apply(ctx, a.setter, kernel.Parameters(a.goos, profile))
		for _, o := range outcomes {
			if !o.Applied() {
				a.printer.Warn("%s not applied", o.Parameter.Name)
			}
		}
		applied, _ := kernel.Count(outcomes)
		a.printer.Success("%d of %d parameters applied", applied, len(outcomes))
	}

	var loaded precache.Result
	if a.cfg.Precache.Enabled {
		a.printer.Step("Precaching tier 1")
		loaded = precache.NewLoader(a.copier, a.fs, a.cfg.Precache.Sources).Run(ctx, vol)
		if loaded.Copied < loaded.Attempted {
			a.printer.Error("%d of %d copies failed", loaded.Attempted-loaded.Copied, loaded.Attempted)
		}
	}

	usage, err := report.MeasureTiers(ctx, vol)
	if err != nil {
		a.logger.Warn("could not measure tiers", "error", err)
	}

	if err := report.Write(a.stdout, report.Summary{
		RunID:    a.runID,
		Profile:  profile,
		Sizing:   sizes,
		Volume:   vol,
		Tuning:   outcomes,
		Precache: loaded,
		Usage:    usage,
		Missing:  volume.Missing(a.fs, vol),
	}); err != nil {
		a.logger.Warn("could not write report", "error", err)
	}

	if a.hold {
		a.wait(ctx, guard.Done())
	}

	a.logger.Info("tiercache finished")
	return nil
}

// wait blocks until the volume has been released or ctx is done.
func (a *app) wait(ctx context.Context, released <-chan struct{}) {
	a.printer.Step("Holding volume, press Ctrl-C to release")
	select {
	case <-released:
	case <-ctx.Done():
	}
}
