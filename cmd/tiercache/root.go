package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/google/uuid"
	"github.com/jamesainslie/tiercache/pkg/tiercache/config"
	"github.com/jamesainslie/tiercache/pkg/tiercache/hardware"
	"github.com/jamesainslie/tiercache/pkg/tiercache/kernel"
	"github.com/jamesainslie/tiercache/pkg/tiercache/logging"
	"github.com/jamesainslie/tiercache/pkg/tiercache/precache"
	"github.com/jamesainslie/tiercache/pkg/tiercache/report"
	"github.com/jamesainslie/tiercache/pkg/tiercache/shell"
	"github.com/jamesainslie/tiercache/pkg/tiercache/volume"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	hold    bool

	rootCmd = &cobra.Command{
		Use:   "tiercache",
		Short: "Provision a tiered RAM-backed cache sized to this machine",
		Long: `tiercache probes the host hardware, sizes a cache from it, and provisions a
memory-backed volume with three tiers. It applies best-effort kernel tuning,
copies known hot files into tier 1, prints a report, and detaches the volume
on exit. When no memory-backed volume can be created, a directory is used.

tiercache must run as root and takes no arguments. Every flag and the version
subcommand are optional extensions. Run bare, it uses built-in defaults and
reads no configuration unless --config is given.

Examples:
  sudo tiercache                          # Provision, report, release
  sudo tiercache --hold                   # Keep the volume until Ctrl-C
  sudo tiercache --config tiercache.yaml  # Override defaults from a file`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
	}
)

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: none, built-in defaults only)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug output on stderr")
	rootCmd.Flags().BoolVar(&hold, "hold", false, "keep the volume mounted until interrupted")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// isPrivileged is replaced in tests.
var isPrivileged = shell.IsPrivileged

// errNotRoot is returned when tiercache runs without root privileges.
func errNotRoot() error {
	return platformerrors.New(platformerrors.CodeForbidden,
		"tiercache must be run as root (try: sudo tiercache)")
}

func runRoot(cmd *cobra.Command, _ []string) error {
	printer := report.NewPrinter(cmd.OutOrStdout())

	err := provision(cmd.Context(), cmd, printer)
	if err != nil {
		printer.Fatal(err)
	}
	return err
}

func provision(ctx context.Context, cmd *cobra.Command, printer *report.Printer) error {
	if !isPrivileged() {
		return errNotRoot()
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "invalid configuration")
	}

	runID := uuid.NewString()
	logCfg, err := loggingConfig(cfg, verbose, runID)
	if err != nil {
		return err
	}
	if err := logging.Init(logCfg); err != nil {
		printer.Warn("file logging disabled: %v", err)
	}
	defer func() { _ = logging.Close() }()

	a := newApp(cfg, printer, runID)
	a.stdout = cmd.OutOrStdout()
	a.hold = hold

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	a.signals = signals
	a.exit = os.Exit

	if ctx == nil {
		ctx = context.Background()
	}
	return a.run(ctx)
}

// newApp wires the production collaborators.
func newApp(cfg *config.Config, printer *report.Printer, runID string) *app {
	commands := shell.New(cfg.Timeouts.Command)
	copies := shell.New(cfg.Timeouts.Copy)
	fsys := billy.NewLocal()

	return &app{
		cfg:     cfg,
		goos:    runtime.GOOS,
		runID:   runID,
		printer: printer,
		prober:  hardware.NewProber(commands),
		manager: volume.NewManager(commands, fsys, cfg.Volume.MountDir),
		fs:      fsys,
		setter:  kernel.NewSysctl(commands),
		copier:  precache.NewCommandCopier(copies),
		logger:  logging.Get("tiercache"),
	}
}

// loggingConfig builds the logging configuration for a run.
func loggingConfig(cfg *config.Config, verbose bool, runID string) (logging.Config, error) {
	maxSize, err := cfg.LogMaxSizeBytes()
	if err != nil {
		return logging.Config{}, err
	}

	path := cfg.Logging.Path
	if path == "" {
		path = logging.DefaultLogPath()
	}

	lc := logging.Config{
		Level: cfg.Logging.Level,
		Path:  path,
		Rotation: logging.RotationConfig{
			MaxSize:    maxSize,
			MaxBackups: cfg.Logging.MaxBackups,
		},
		Fields: []interface{}{"run", runID},
	}
	if verbose {
		lc.Level = "debug"
		lc.ConsoleLevel = "debug"
	}
	return lc, nil
}
