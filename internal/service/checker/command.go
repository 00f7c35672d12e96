package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/h5probe/internal/bridge"
	"github.com/oshokin/h5probe/internal/config"
	"github.com/oshokin/h5probe/internal/logger"
	"github.com/oshokin/h5probe/internal/report"
	"github.com/oshokin/h5probe/internal/service/probe"
	"github.com/oshokin/h5probe/internal/storage"
	"github.com/oshokin/h5probe/internal/storage/hdf5"
)

// Options controls one h5probe invocation.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Paths are the files to probe; empty means one self-managed temp file.
	Paths []string
	// Output overrides the configured report format.
	Output string
	// LogLevel overrides the configured log level.
	LogLevel string
	// KeepFile keeps a self-managed temp file after the run.
	KeepFile bool
	// Parallelism overrides the configured batch parallelism when positive.
	Parallelism int
	// Stdout receives the report; nil means os.Stdout.
	Stdout io.Writer
	// Progress receives a spinner when it is a terminal; nil disables it.
	Progress *os.File
	// Library overrides the HDF5 storage library.
	Library storage.Library
	// Registry overrides the process-wide bridge registry.
	Registry *bridge.Registry
}

var (
	// errMismatch is returned when a probe read back something other than the library version.
	errMismatch = errors.New("read-back value differs from library version")
	// errEmptyResult is returned when the bridge returns no value.
	errEmptyResult = errors.New("routine returned no value")
)

// FailedError is returned when some probes of a run failed. Each failure has
// already been logged and rendered, so the message only counts them.
type FailedError struct {
	// Failed is the number of failed paths.
	Failed int
	// Total is the number of paths in the run.
	Total int
	// Err joins the individual failures.
	Err error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("%d of %d probes failed", e.Failed, e.Total)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

// Run loads settings, probes every path through the bridge and renders the report.
// It fails when any probe fails or returns a value other than the library version.
//
//nolint:cyclop,funlen // Linear orchestration; splitting would scatter the cleanup.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err = applyOverrides(cfg, opts); err != nil {
		return err
	}

	level, _ := logger.ParseLogLevel(cfg.LogLevel)
	ctx = logger.ToContext(ctx, logger.New(nil, logger.WithLevel(level)))
	ctx = logger.WithName(ctx, "h5probe")

	format, err := report.ParseFormat(cfg.Output)
	if err != nil {
		return err
	}

	lib := opts.Library
	if lib == nil {
		lib = hdf5.New()
	}

	p := probe.New(lib,
		probe.WithDatasetPath(cfg.DatasetPath),
		probe.WithMaxStringSize(cfg.MaxStringSize),
	)

	registry, err := resolveRegistry(ctx, opts.Registry, p)
	if err != nil {
		return err
	}

	paths := opts.Paths
	if len(paths) == 0 {
		path, cleanup, err := tempProbeFile(ctx, cfg.TempDir, cfg.KeepFile)
		if err != nil {
			return err
		}
		defer cleanup()

		paths = []string{path}
	}

	// Queried independently of the probe so the report can show a mismatch.
	expected, err := p.Expected()
	if err != nil {
		logger.WarnKV(ctx, "Library version unavailable", "error", err)
	}

	logger.DebugKV(ctx, "Probing", "paths", paths, "dataset", p.DatasetPath(), "parallelism", cfg.Parallelism)

	stopProgress := startProgress(opts.Progress, format != report.FormatJSON, "Probing HDF5 round trip...")

	outcomes, runErr := probe.RunAll(ctx, paths, cfg.Parallelism, func(ctx context.Context, path string) (string, error) {
		out, err := registry.Call(ctx, bridge.RoutineName, path)
		if err != nil {
			return "", err
		}

		if len(out) == 0 {
			return "", fmt.Errorf("%s: %w", bridge.RoutineName, errEmptyResult)
		}

		return out[0], nil
	})

	stopProgress()

	if outcomes == nil {
		return runErr
	}

	rows := make([]report.Row, 0, len(outcomes))
	mismatch, failed := false, 0

	for _, o := range outcomes {
		row := report.Row{Path: o.Path, Expected: expected, Value: o.Value, Err: o.Err}
		rows = append(rows, row)

		switch {
		case o.Err != nil:
			failed++

			logger.ErrorKV(ctx, "Probe failed", "path", o.Path, "error", o.Err)
		case !row.Match():
			mismatch = true

			logger.ErrorKV(ctx, "Probe value mismatch", "path", o.Path, "expected", expected, "value", o.Value)
		default:
			logger.InfoKV(ctx, "Probe succeeded", "path", o.Path, "value", o.Value)
		}
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	if err = report.Render(stdout, format, rows); err != nil {
		return err
	}

	if runErr != nil {
		return &FailedError{Failed: failed, Total: len(outcomes), Err: runErr}
	}

	if mismatch {
		return errMismatch
	}

	return nil
}

// applyOverrides merges command-line options into cfg and revalidates it.
func applyOverrides(cfg *config.Config, opts *Options) error {
	if opts.Output != "" {
		cfg.Output = opts.Output
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if opts.KeepFile {
		cfg.KeepFile = true
	}

	if opts.Parallelism > 0 {
		cfg.Parallelism = opts.Parallelism
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	return nil
}

// resolveRegistry returns the explicit registry, or installs p in the
// process-wide one. Once that is taken by an earlier run, p gets a registry
// of its own so this run's library and settings are the ones exercised.
func resolveRegistry(ctx context.Context, explicit *bridge.Registry, p *probe.Probe) (*bridge.Registry, error) {
	if explicit != nil {
		return explicit, nil
	}

	err := bridge.Init(p)
	if err == nil {
		return bridge.Default(), nil
	}

	if !errors.Is(err, bridge.ErrAlreadyInitialized) {
		return nil, fmt.Errorf("initialise bridge: %w", err)
	}

	logger.DebugKV(ctx, "Bridge already initialised, using a run-local registry")

	registry, err := bridge.NewRegistry(p)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	return registry, nil
}

// tempProbeFile creates an empty file for the probe to overwrite.
// The returned cleanup removes it unless keep is set.
func tempProbeFile(ctx context.Context, dir string, keep bool) (string, func(), error) {
	f, err := os.CreateTemp(dir, "h5probe-*.h5")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}

	path := f.Name()

	if err = f.Close(); err != nil {
		_ = os.Remove(path)

		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	cleanup := func() {
		if keep {
			logger.InfoKV(ctx, "Keeping probe file", "path", path)

			return
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Failed to remove probe file", "path", path, "error", err)
		}
	}

	return path, cleanup, nil
}
