// Package fileproc runs per-file work on a bounded worker pool.
package fileproc

import (
	"context"
	"fmt"
	"runtime"

	"github.com/panbanda/plint/pkg/analyzer"
	"github.com/sourcegraph/conc/pool"
)

// DefaultWorkerMultiplier is applied to NumCPU when no worker count is set.
const DefaultWorkerMultiplier = 2

// FileError is a failure for one file.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// Errors lists the files that failed, in input order.
type Errors []FileError

func (e Errors) Error() string {
	switch len(e) {
	case 0:
		return "no errors"
	case 1:
		return e[0].Error()
	default:
		return fmt.Sprintf("%d files failed (first: %v)", len(e), e[0])
	}
}

// Unwrap exposes each file's error to errors.Is and errors.As.
func (e Errors) Unwrap() []error {
	out := make([]error, len(e))
	for i, fe := range e {
		out[i] = fe
	}
	return out
}

// Paths returns the failed paths.
func (e Errors) Paths() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Path
	}
	return out
}

// Options tunes ForEachFile.
type Options struct {
	// Workers bounds concurrency; 0 means NumCPU * DefaultWorkerMultiplier.
	Workers int
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// ForEachFile calls fn for every file concurrently. Successful results are
// returned in the same order as files; failures are returned as Errors,
// which is nil when every file succeeded. Files not started before ctx is
// cancelled fail with the context's error. A Tracker attached to ctx with
// analyzer.WithTracker is ticked after every file, failed or not.
func ForEachFile[T any](ctx context.Context, files []string, opts Options, fn func(string) (T, error)) ([]T, Errors) {
	if len(files) == 0 {
		return nil, nil
	}

	type slot struct {
		val T
		err error
	}
	slots := make([]slot, len(files))

	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(files))
	}

	p := pool.New().WithMaxGoroutines(opts.workers()).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			if tracker != nil {
				defer tracker.Tick(path)
			}
			if err := ctx.Err(); err != nil {
				slots[i].err = err
				return nil
			}
			slots[i].val, slots[i].err = fn(path)
			return nil
		})
	}
	_ = p.Wait()

	var (
		results []T
		errs    Errors
	)
	for i, s := range slots {
		if s.err != nil {
			errs = append(errs, FileError{Path: files[i], Err: s.err})
			continue
		}
		results = append(results, s.val)
	}
	return results, errs
}
