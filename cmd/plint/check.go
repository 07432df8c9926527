package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/panbanda/plint/internal/cache"
	"github.com/panbanda/plint/internal/output"
	"github.com/panbanda/plint/internal/progress"
	"github.com/panbanda/plint/internal/service/linter"
	"github.com/panbanda/plint/pkg/config"
	"github.com/panbanda/plint/pkg/scanner"
	"github.com/panbanda/plint/pkg/source"
	"github.com/urfave/cli/v2"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Aliases:   []string{"lint"},
		Usage:     "Lint files and print diagnostics",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Lint file contents at this git revision instead of the working tree",
			},
			&cli.BoolFlag{
				Name:  "fail-on-error",
				Value: true,
				Usage: "Exit with status 1 when any file has errors",
			},
		},
		Action: runCheckCmd,
	}
}

func runCheckCmd(c *cli.Context) error {
	loaded, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg := loaded.Config
	logger := newLogger(c, cfg)
	if loaded.Source != "" {
		logger.Debug("loaded config", "path", loaded.Source)
	}

	files, err := discoverFiles(cfg, getPaths(c))
	if err != nil {
		return err
	}
	files, skipped := scanner.FilterBySize(files, cfg.Lint.MaxFileSize)
	if skipped > 0 {
		logger.Debug("skipped oversized files", "count", skipped)
	}
	if len(files) == 0 {
		color.New(color.FgYellow).Fprintln(c.App.Writer, "No source files found")
		return nil
	}

	var cch *cache.Cache
	opts := []linter.Option{
		linter.WithConfig(cfg),
		linter.WithLogger(logger),
	}
	if ref := c.String("ref"); ref != "" {
		src, err := source.NewGit(getPaths(c)[0], ref)
		if err != nil {
			return err
		}
		logger.Debug("reading from git revision", "ref", ref, "root", src.Root())
		opts = append(opts, linter.WithSource(src))
	}
	if cfg.Cache.Enabled && !c.Bool("no-cache") {
		opened, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
		if err != nil {
			logger.Warn("cache disabled", "error", err)
		} else {
			cch = opened
			opts = append(opts, linter.WithCache(cch))
		}
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := progress.New(len(files), progress.WithLabel("Linting..."))
	run, err := linter.New(opts...).Lint(tracker.Attach(ctx), files)
	if err != nil {
		tracker.Fail(err)
		return fmt.Errorf("lint failed: %w", err)
	}
	tracker.Done()
	hits, misses := cch.Stats()
	logger.Debug("lint finished",
		"files", run.TotalFilesAnalyzed,
		"cache_hits", hits,
		"cache_misses", misses,
		"mean_diagnostics", run.Stats.MeanDiagnostics,
		"stddev_diagnostics", run.Stats.StdDevDiagnostics)

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Render(diagnosticsTable(run, formatter.Colored())); err != nil {
		return err
	}

	if len(run.Failed) > 0 && formatter.Format() == output.FormatText {
		fmt.Fprintln(formatter.Writer())
		formatter.Warning("Could not read %d file(s):", len(run.Failed))
		for _, f := range run.Failed {
			fmt.Fprintf(formatter.Writer(), "  - %s\n", f)
		}
	}

	if c.Bool("fail-on-error") && run.Summary.TotalErrors > 0 {
		return cli.Exit(fmt.Sprintf("%d error(s) in %d file(s)",
			run.Summary.TotalErrors, run.Summary.FilesWithErrors), 1)
	}
	return nil
}

// discoverFiles expands paths into the lintable files beneath them.
func discoverFiles(cfg *config.Config, paths []string) ([]string, error) {
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", p, err)
		}
		abs = append(abs, a)
	}
	files, err := scanner.NewScanner(cfg).ScanPaths(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to scan paths: %w", err)
	}
	return files, nil
}

// newFormatter writes to --output, or to the app's writer.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := output.ParseFormat(formatName(c, cfg))
	if path := c.String("output"); path != "" {
		return output.Open(format, path, false)
	}
	return output.New(format, c.App.Writer, cfg.Output.Color), nil
}

func diagnosticsTable(run *linter.Run, colored bool) *output.Table {
	table := output.NewTable("Lint Results", "File", "Line", "Severity", "Kind", "Message").WithData(run)
	for _, r := range run.Results {
		file := truncate(displayPath(r.File), 60)
		for _, d := range r.Diagnostics() {
			line := "-"
			if d.Line > 0 {
				line = fmt.Sprintf("%d", d.Line)
			}
			severity := string(d.Severity)
			if colored {
				severity = output.SeverityColor(severity, severity)
			}
			table.AddRow(file, line, severity, string(d.Kind), d.Message)
		}
	}
	table.SetFooter(
		fmt.Sprintf("Files: %d", run.TotalFilesAnalyzed),
		fmt.Sprintf("Errors: %d", run.Summary.TotalErrors),
		fmt.Sprintf("Warnings: %d", run.Summary.TotalWarnings),
		fmt.Sprintf("Lines: %d", run.Summary.TotalLines),
	)
	return table
}

// displayPath shortens absolute paths relative to the working directory.
func displayPath(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	wd, err := filepath.Abs(".")
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, path); err == nil && !startsWithParent(rel) {
		return rel
	}
	return path
}

func startsWithParent(rel string) bool {
	return rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)
}
