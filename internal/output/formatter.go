// Package output renders lint results as text tables, JSON, markdown, or
// TOON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	toon "github.com/toon-format/toon-go"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
)

// ParseFormat converts a string to Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	case "toon":
		return FormatTOON
	default:
		return FormatText
	}
}

// structured reports whether the format serializes data rather than
// drawing it.
func (f Format) structured() bool {
	return f == FormatJSON || f == FormatTOON
}

// Renderable is a value with its own text and markdown layouts.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	// RenderData returns the value serialized for JSON and TOON.
	RenderData() any
}

// Formatter writes values in one format to one destination.
type Formatter struct {
	format  Format
	w       io.Writer
	closer  io.Closer
	colored bool
}

// Open creates a formatter writing to path, or to stdout when path is
// empty. Files are never colored.
func Open(format Format, path string, colored bool) (*Formatter, error) {
	if path == "" {
		return New(format, os.Stdout, colored), nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return &Formatter{format: format, w: f, closer: f}, nil
}

// New creates a formatter over w.
func New(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, w: w, colored: colored}
}

// Close closes the destination if Open created it.
func (f *Formatter) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

func (f *Formatter) Writer() io.Writer { return f.w }

func (f *Formatter) Format() Format { return f.format }

// Colored reports whether text output is colorized.
func (f *Formatter) Colored() bool {
	return f.colored && f.format == FormatText
}

// Render writes v. Values that are not Renderable are always serialized,
// as JSON unless the format is TOON.
func (f *Formatter) Render(v any) error {
	r, ok := v.(Renderable)
	switch {
	case !ok:
		return f.encode(v)
	case f.format.structured():
		return f.encode(r.RenderData())
	case f.format == FormatMarkdown:
		return r.RenderMarkdown(f.w)
	default:
		return r.RenderText(f.w, f.Colored())
	}
}

func (f *Formatter) encode(v any) error {
	if f.format == FormatTOON {
		out, err := toon.Marshal(v, toon.WithIndent(2))
		if err != nil {
			return fmt.Errorf("toon encode: %w", err)
		}
		_, err = fmt.Fprintln(f.w, string(out))
		return err
	}

	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Success, Warning and Error print one status line. Without color the
// warning and error lines carry a level prefix instead.
func (f *Formatter) Success(format string, args ...any) {
	f.status(color.FgGreen, "", format, args...)
}

func (f *Formatter) Warning(format string, args ...any) {
	f.status(color.FgYellow, "WARNING: ", format, args...)
}

func (f *Formatter) Error(format string, args ...any) {
	f.status(color.FgRed, "ERROR: ", format, args...)
}

func (f *Formatter) status(attr color.Attribute, prefix, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if f.colored {
		color.New(attr).Fprintln(f.w, msg)
		return
	}
	fmt.Fprintln(f.w, prefix+msg)
}

// SeverityColor colors text by lint severity.
func SeverityColor(severity, text string) string {
	switch strings.ToLower(severity) {
	case "error":
		return color.RedString(text)
	case "warning":
		return color.YellowString(text)
	default:
		return text
	}
}
