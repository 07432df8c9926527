// Package report writes the plain-text lint report.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/panbanda/plint/pkg/analyzer/lint"
)

// DefaultPath is where the report is written when no path is configured.
const DefaultPath = "report.txt"

// Write renders r in the report layout: title, errors, warnings, then the
// metrics section.
func Write(w io.Writer, r *lint.Result) error {
	bw := bufio.NewWriter(w)

	fmt.Fprint(bw, "Report\n\n")
	writeBody(bw, r)

	return bw.Flush()
}

func writeBody(w io.Writer, r *lint.Result) {
	for _, e := range r.Errors {
		fmt.Fprintf(w, "ERROR: %s\n", e.Message)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "WARNING: %s\n", warn.Message)
	}
	fmt.Fprint(w, "\nMETRICS\n\n")
	for _, m := range r.Metrics.Pairs() {
		fmt.Fprintf(w, "%s: %s\n", m.Key, m.Value)
	}
}

// WriteAll renders several results into one document. Each file's section
// starts with a "== <file>" line.
func WriteAll(w io.Writer, results []*lint.Result) error {
	bw := bufio.NewWriter(w)

	fmt.Fprint(bw, "Report\n")
	for _, r := range results {
		fmt.Fprintf(bw, "\n== %s\n\n", r.File)
		writeBody(bw, r)
	}

	return bw.Flush()
}

// WriteFile persists the report for r at path, creating parent directories.
func WriteFile(path string, r *lint.Result) error {
	return writeFile(path, func(w io.Writer) error { return Write(w, r) })
}

// WriteAllFile persists a multi-file report at path.
func WriteAllFile(path string, results []*lint.Result) error {
	return writeFile(path, func(w io.Writer) error { return WriteAll(w, results) })
}

func writeFile(path string, render func(io.Writer) error) error {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory %q: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}
