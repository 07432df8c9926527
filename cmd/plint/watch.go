package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/panbanda/plint/internal/service/linter"
	"github.com/panbanda/plint/pkg/analyzer/lint"
	"github.com/panbanda/plint/pkg/watch"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch for file changes and re-lint",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before a changed file is re-linted",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	loaded, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg := loaded.Config
	logger := newLogger(c, cfg)

	absPath, err := filepath.Abs(getPaths(c)[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	watcher, err := watch.NewWatcher(absPath, cfg, c.Duration("debounce"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	svc := linter.New(linter.WithConfig(cfg), linter.WithLogger(logger))
	w := c.App.Writer

	watcher.SetCallback(func(changedPath string) {
		result, err := svc.LintFile(changedPath)
		if err != nil {
			color.New(color.FgRed).Fprintf(w, "%s: %v\n", displayPath(changedPath), err)
			return
		}
		if result == nil {
			return
		}
		printWatchResult(c, displayPath(changedPath), result)
	})
	watcher.SetErrorHandler(func(err error) {
		logger.Warn("watch error", "error", err)
	})

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	color.New(color.FgCyan).Fprintf(w, "Watching %s for changes (Ctrl+C to stop)...\n", absPath)
	if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintln(w, "\nStopping watch...")
	return nil
}

func printWatchResult(c *cli.Context, path string, r *lint.Result) {
	w := c.App.Writer
	if len(r.Errors) == 0 && len(r.Warnings) == 0 {
		color.New(color.FgGreen).Fprintf(w, "%s: clean\n", path)
		return
	}
	fmt.Fprintf(w, "%s: %d error(s), %d warning(s)\n", path, len(r.Errors), len(r.Warnings))
	for _, d := range r.Diagnostics() {
		label := "WARNING"
		if d.Severity == lint.SeverityError {
			label = "ERROR"
		}
		fmt.Fprintf(w, "  %s: %s\n", label, d.Message)
	}
}
