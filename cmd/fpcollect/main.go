// fpcollect polls a fleet of Juniper devices over SSH through the TACACS
// access servers, parses the diagnostic output into structured records
// and writes a multi-sheet Excel report per run.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/fpcollect/fpcollect/internal/artifacts"
	"github.com/fpcollect/fpcollect/internal/auth"
	"github.com/fpcollect/fpcollect/internal/config"
	"github.com/fpcollect/fpcollect/internal/inference"
	"github.com/fpcollect/fpcollect/internal/poller"
	"github.com/fpcollect/fpcollect/internal/report"
	"github.com/fpcollect/fpcollect/internal/session"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to config YAML (defaults apply when empty)")
		accessPath  = flag.String("access", "access.yaml", "path to access credentials YAML")
		nodesPath   = flag.String("nodes", "nodes.txt", "path to device list, one hostname per line")
		catalogPath = flag.String("catalog", "", "path to inference catalog override")
		outDir      = flag.String("out", "", "report output directory (overrides config)")
		schedule    = flag.String("schedule", "", "cron expression for repeated runs; empty runs once")
		debug       = flag.Bool("debug", false, "write raw captures and parse failures to disk")
	)
	flag.Parse()

	if err := run(*configPath, *accessPath, *nodesPath, *catalogPath, *outDir, *schedule, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "fpcollect: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, accessPath, nodesPath, catalogPath, outDir, schedule string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if debug {
		cfg.Output.Debug = true
		if cfg.Output.DebugDir == "" {
			cfg.Output.DebugDir = cfg.Output.Dir
		}
	}

	logger, closeLog, err := setupLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	access, err := auth.Load(accessPath)
	if err != nil {
		return err
	}
	if err := access.PromptMissing(); err != nil {
		return err
	}

	nodes, err := config.LoadNodeList(nodesPath)
	if err != nil {
		return err
	}

	catalog, err := inference.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}

	manager := session.NewManager(access, cfg.SSH, logger)
	runner := poller.NewRunner(cfg, poller.NewSessionOpener(manager), inference.NewEngine(catalog), logger)
	if cfg.Probe.Enabled {
		runner.WithProber(poller.NewSNMPProbe(cfg.Probe, logger))
	}
	if cfg.Output.Debug {
		runner.WithArchiver(artifacts.NewArchiver(cfg.Output.DebugDir, logger))
	}
	writer := report.NewWriter(cfg.Output.Dir, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOnce := func() error {
		ds, err := runner.Run(ctx, nodes)
		if err != nil {
			return err
		}
		path, err := writer.Write(ds)
		if err != nil {
			return err
		}
		if !ds.Succeeded() {
			return fmt.Errorf("no device completed collection; report at %s covers failures only", path)
		}
		logger.Info("report ready", "path", path)
		return nil
	}

	if schedule == "" {
		return runOnce()
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := runOnce(); err != nil {
			logger.Error("scheduled run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	logger.Info("scheduler started", "schedule", schedule, "devices", len(nodes))
	c.Start()
	<-ctx.Done()
	logger.Info("shutting down")
	cronCtx := c.Stop()
	<-cronCtx.Done()
	return nil
}

// setupLogger builds the process logger; with a file path configured the
// log goes to the file and stderr both.
func setupLogger(cfg config.LoggingConfig) (*slog.Logger, func(), error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := io.Writer(os.Stderr)
	closer := func() {}
	if cfg.FilePath != "" {
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closer = func() { f.Close() }
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closer, nil
}
