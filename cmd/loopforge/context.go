package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/backmassage/loopforge/internal/check"
	"github.com/backmassage/loopforge/internal/config"
	"github.com/backmassage/loopforge/internal/display"
	"github.com/backmassage/loopforge/internal/logging"
	"github.com/backmassage/loopforge/internal/pipeline"
)

var (
	// errItemsFailed is returned when a batch finished with failed items.
	errItemsFailed = errors.New("one or more items failed")
	// errReported marks an error that has already been logged.
	errReported = errors.New("reported")
)

// commandContext carries the persistent flags shared by every subcommand.
type commandContext struct {
	flags *pflag.FlagSet

	configPath string
	verbose    bool
	color      config.ColorMode
	logFile    string
	dryRun     bool
	workers    int
	outputDir  string
}

// overrides turns the persistent flags the user actually set into config
// overrides, followed by the command's own.
func (c *commandContext) overrides(extra ...config.Override) []config.Override {
	var out []config.Override
	set := func(name string, o config.Override) {
		if c.flags != nil && c.flags.Changed(name) {
			out = append(out, o)
		}
	}
	set("verbose", func(cfg *config.Config) { cfg.Logging.Verbose = c.verbose })
	set("color", func(cfg *config.Config) { cfg.Logging.Color = c.color })
	set("log", func(cfg *config.Config) { cfg.Logging.File = c.logFile })
	set("dry-run", func(cfg *config.Config) { cfg.Batch.DryRun = c.dryRun })
	set("workers", func(cfg *config.Config) { cfg.Batch.Workers = c.workers })
	set("output", func(cfg *config.Config) { cfg.Paths.OutputDir = c.outputDir })
	return append(out, extra...)
}

// setup loads the configuration, opens the logger and prints the banner.
// The caller must Close the logger.
func (c *commandContext) setup(extra ...config.Override) (config.Config, *logging.Logger, error) {
	cfg, path, exists, err := config.Load(c.configPath, c.overrides(extra...)...)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("open log: %w", err)
	}
	display.PrintBanner(os.Stdout)
	log.Info("=== loopforge v%s (%s) ===", version, commit)
	if exists {
		log.Debug("Config: %s", path)
	} else {
		log.Debug("Config: defaults (%s not found)", path)
	}
	return cfg, log, nil
}

// jobFunc runs one batch job.
type jobFunc func(ctx context.Context, r *pipeline.Runner) (pipeline.RunStats, error)

// runJob loads config, checks the toolchain and runs job with interrupt
// handling. sources are the input folders that must not contain the output.
func (c *commandContext) runJob(job jobFunc, sources func(config.Config) []string, extra ...config.Override) error {
	cfg, log, err := c.setup(extra...)
	if err != nil {
		return err
	}
	defer log.Close()

	if sources != nil {
		if err := checkOutputOutside(cfg.Paths.OutputDir, sources(cfg)); err != nil {
			log.Error("%v", err)
			return errReported
		}
	}
	log.Info("Out: %s", cfg.Paths.OutputDir)
	if cfg.Batch.DryRun {
		log.Warn("DRY RUN: nothing will be written")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !cfg.Batch.DryRun {
		if err := check.CheckDeps(ctx, cfg); err != nil {
			log.Error("%v", err)
			log.Error("Run `loopforge check` for details")
			return errReported
		}
	}

	// Cancel on SIGINT/SIGTERM: items already encoding finish, no new
	// item starts.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Received interrupt, finishing items in progress…")
			cancel()
		case <-ctx.Done():
		}
	}()

	stats, err := job(ctx, pipeline.New(cfg, log))
	if err != nil {
		log.Error("%v", err)
		return errReported
	}
	if !stats.OK() {
		return errItemsFailed
	}
	return nil
}

// checkOutputOutside rejects an output directory inside any source folder,
// so a batch never discovers its own output. Missing folders are left to
// the job to report.
func checkOutputOutside(output string, sources []string) error {
	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", output, err)
	}
	outputAbs, err := absPath(output)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	for _, src := range sources {
		if src == "" {
			continue
		}
		srcAbs, err := absPath(src)
		if err != nil {
			continue
		}
		if err := config.ValidatePaths(srcAbs, outputAbs); err != nil {
			return fmt.Errorf("%w: %s is inside %s", err, output, src)
		}
	}
	return nil
}

// absPath returns the absolute, symlink-resolved path for comparing
// directory hierarchies.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
