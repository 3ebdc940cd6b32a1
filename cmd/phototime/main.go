// Command phototime restores photo and video file timestamps from the
// sidecar metadata files that accompany a Google Photos export.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sydlexius/phototime/internal/config"
	"github.com/sydlexius/phototime/internal/event"
	"github.com/sydlexius/phototime/internal/logging"
	"github.com/sydlexius/phototime/internal/metadata"
	"github.com/sydlexius/phototime/internal/reconcile"
	"github.com/sydlexius/phototime/internal/report"
	"github.com/sydlexius/phototime/internal/rootcheck"
	"github.com/sydlexius/phototime/internal/scanner"
	"github.com/sydlexius/phototime/internal/timestamp"
	"github.com/sydlexius/phototime/internal/version"
	"github.com/sydlexius/phototime/internal/watcher"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("phototime", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("PT_CONFIG_PATH"), "path to config file (YAML)")
	dryRun := fs.Bool("dry-run", false, "report what would change without touching any file")
	watch := fs.Bool("watch", false, "keep running and reconcile when sidecar files change")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <export-directory>\n\n", fs.Name())
		fmt.Fprintf(fs.Output(), "Applies the taken time recorded in photo export sidecar files\n")
		fmt.Fprintf(fs.Output(), "to the matching media files' access and modification times.\n\n")
		fmt.Fprintf(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:]) // ExitOnError: Parse never returns an error

	if *showVersion {
		fmt.Printf("phototime %s (%s)\n", version.Version, version.Commit)
		return 0
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	// Validate the root before opening the log file: the log lands inside
	// the root by default, so a bad root must fail before any write.
	root, err := rootcheck.Validate(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	logDir := cfg.Logging.Dir
	if logDir == "" {
		logDir = root.Path
	}
	start := time.Now()
	logManager, logger := logging.NewManager(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Dir:    logDir,
	}, start)
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	logger.Info("starting phototime",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("root", root.Path),
		slog.Bool("dry_run", *dryRun),
	)

	eventBus := event.NewBus(logger)

	scanService := scanner.NewService(logger, cfg.Metadata.Suffix, cfg.Scanner.Exclusions, cfg.Scanner.FollowSymlinks)
	scanService.SetEventBus(eventBus)

	resolver := metadata.NewResolver(logger, cfg.Metadata.Suffix, cfg.Metadata.TakenTimePath)
	applier := timestamp.NewApplier(logger, *dryRun)

	reconciler := reconcile.NewService(scanService, resolver, applier, logger, cfg.Metadata.Suffix)
	reconciler.SetEventBus(eventBus)

	reporter := report.New(logger, os.Stdout, cfg.Progress.Enabled)
	reporter.Attach(eventBus)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runOnce := func(ctx context.Context) error {
		summary, err := reconciler.Run(ctx, root)
		if err != nil {
			return err
		}
		reporter.PrintSummary(summary, logManager.Path())
		if !*dryRun {
			path := report.SummaryPath(logDir, summary.StartedAt)
			if err := reporter.WriteSummaryFile(summary, path); err != nil {
				logger.Error("could not persist run summary", "error", err)
			}
		}
		return nil
	}

	if err := runOnce(ctx); err != nil {
		logger.Error("reconciliation failed before processing", "error", err)
		return 1
	}

	if *watch {
		watchService := watcher.NewService(runOnce, logger, cfg.Metadata.Suffix,
			time.Duration(cfg.Watch.DebounceSeconds)*time.Second,
			time.Duration(cfg.Watch.PollSeconds)*time.Second)
		watchService.Start(ctx, root.Path)
	}

	// Per-file failures are reported in the summary, not the exit code:
	// reaching the processing phase means the run completed.
	return 0
}
