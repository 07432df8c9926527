package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/plint/internal/service/linter"
	"github.com/panbanda/plint/pkg/analyzer/lint"
	"github.com/panbanda/plint/pkg/report"
	"github.com/urfave/cli/v2"
)

const defaultReportInput = "sample.sql"

func reportCmd() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Lint files and save a plain-text report",
		ArgsUsage: "[file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "report",
				Aliases: []string{"r"},
				Usage:   "Report path (default from config: lint.report_path)",
			},
		},
		Action: runReportCmd,
	}
}

func runReportCmd(c *cli.Context) error {
	loaded, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	inputs := []string{defaultReportInput}
	if c.Args().Len() > 0 {
		inputs = c.Args().Slice()
	}

	reportPath := c.String("report")
	if reportPath == "" {
		reportPath = cfg.Lint.ReportPath
	}
	if reportPath == "" {
		reportPath = report.DefaultPath
	}

	svc := linter.New(
		linter.WithConfig(cfg),
		linter.WithLogger(newLogger(c, cfg)),
	)
	results := make([]*lint.Result, 0, len(inputs))
	for _, input := range inputs {
		result, err := svc.LintFile(input)
		if err != nil {
			return fmt.Errorf("failed to lint %s: %w", input, err)
		}
		if result == nil {
			return fmt.Errorf("%s exceeds lint.max_file_size (%d bytes)", input, cfg.Lint.MaxFileSize)
		}
		results = append(results, result)
		if c.Bool("verbose") {
			color.New(color.Faint).Fprintf(c.App.ErrWriter, "%s: %d error(s), %d warning(s)\n",
				input, len(result.Errors), len(result.Warnings))
		}
	}

	if len(results) == 1 {
		err = report.WriteFile(reportPath, results[0])
	} else {
		err = report.WriteAllFile(reportPath, results)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Report saved to %s\n", reportPath)
	return nil
}
