// Package progress draws terminal progress bars for long lint runs.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/panbanda/plint/pkg/analyzer"
	"github.com/schollz/progressbar/v3"
)

// Tracker counts finished files on a progress bar. When output is not a
// terminal there is no bar and every method but Fail is a no-op.
type Tracker struct {
	bar   *progressbar.ProgressBar
	out   io.Writer
	label string
}

type settings struct {
	out    io.Writer
	label  string
	always bool
}

// Option configures New.
type Option func(*settings)

// WithWriter draws on w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(s *settings) { s.out = w }
}

// WithLabel sets the text shown before the bar.
func WithLabel(label string) Option {
	return func(s *settings) { s.label = label }
}

// Always draws even when the writer is not a terminal.
func Always() Option {
	return func(s *settings) { s.always = true }
}

// New creates a tracker expecting total ticks.
func New(total int, opts ...Option) *Tracker {
	s := settings{out: os.Stderr}
	for _, opt := range opts {
		opt(&s)
	}

	t := &Tracker{out: s.out, label: s.label}
	if !s.always && !isTerminal(s.out) {
		return t
	}
	t.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(s.out),
		progressbar.OptionSetDescription(s.label),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(50*time.Millisecond),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "#",
			SaucerPadding: ".",
			BarStart:      "|",
			BarEnd:        "|",
		}),
	)
	return t
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Tick advances the bar by one. Safe for concurrent use.
func (t *Tracker) Tick() {
	if t.bar != nil {
		_ = t.bar.Add(1)
	}
}

// Attach returns a context whose analyzer.Tracker advances this bar.
func (t *Tracker) Attach(ctx context.Context) context.Context {
	return analyzer.WithTracker(ctx, analyzer.NewTracker(func(_, _ int, _ string) {
		t.Tick()
	}))
}

// Done removes the bar from the terminal.
func (t *Tracker) Done() {
	if t.bar != nil {
		_ = t.bar.Finish()
		_ = t.bar.Clear()
	}
}

// Fail removes the bar and reports err on the tracker's writer.
func (t *Tracker) Fail(err error) {
	t.Done()
	fmt.Fprintf(t.out, "  %s failed: %v\n", t.label, err)
}
