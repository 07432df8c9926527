package lint

import (
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/plint/internal/fileproc"
)

// TokenKind classifies a token once so the per-line state machine can
// switch on kinds instead of comparing strings.
type TokenKind int

const (
	KindIdentifier TokenKind = iota
	KindTypeKeyword
	KindBlockStart  // BEGIN
	KindBlockEnd    // END
	KindReturn      // RETURN
	KindAssign      // :=
	KindEquals      // =
	KindTerminator  // ;
	KindSlash       // /
)

// String implements fmt.Stringer.
func (k TokenKind) String() string {
	switch k {
	case KindIdentifier:
		return "identifier"
	case KindTypeKeyword:
		return "type_keyword"
	case KindBlockStart:
		return "block_start"
	case KindBlockEnd:
		return "block_end"
	case KindReturn:
		return "return"
	case KindAssign:
		return "assign"
	case KindEquals:
		return "equals"
	case KindTerminator:
		return "terminator"
	case KindSlash:
		return "slash"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Severity separates structural errors from heuristic warnings.
type Severity string

// String implements fmt.Stringer for toon serialization.
func (s Severity) String() string {
	return string(s)
}

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Kind identifies the condition a diagnostic reports.
type Kind string

// String implements fmt.Stringer for toon serialization.
func (k Kind) String() string {
	return string(k)
}

const (
	KindUnmatchedEnd       Kind = "unmatched_end"
	KindUnmatchedBegin     Kind = "unmatched_begin"
	KindUnusedVariable     Kind = "unused_variable"
	KindUndeclaredVariable Kind = "undeclared_variable"
	KindUnreachableCode    Kind = "unreachable_code"
)

// Diagnostic is a single finding. Line is 0 when the finding is not tied
// to a source line.
type Diagnostic struct {
	Severity Severity `json:"severity" toon:"severity"`
	Kind     Kind     `json:"kind" toon:"kind"`
	Line     int      `json:"line,omitempty" toon:"line,omitempty"`
	Symbol   string   `json:"symbol,omitempty" toon:"symbol,omitempty"`
	Message  string   `json:"message" toon:"message"`
}

// String returns the report message.
func (d Diagnostic) String() string {
	return d.Message
}

// Metrics are computed once per pass, after reconciliation.
type Metrics struct {
	Lines    int     `json:"lines" toon:"lines"`
	Declared int     `json:"declared" toon:"declared"`
	Used     int     `json:"used" toon:"used"`
	Errors   int     `json:"errors" toon:"errors"`
	Warnings int     `json:"warnings" toon:"warnings"`
	Time     float64 `json:"time" toon:"time"` // seconds, 4 decimals
}

// Metric is one key/value pair of the metrics section.
type Metric struct {
	Key   string
	Value string
}

// Pairs returns the metrics in report order.
func (m Metrics) Pairs() []Metric {
	return []Metric{
		{"Lines", fmt.Sprintf("%d", m.Lines)},
		{"Declared", fmt.Sprintf("%d", m.Declared)},
		{"Used", fmt.Sprintf("%d", m.Used)},
		{"Errors", fmt.Sprintf("%d", m.Errors)},
		{"Warnings", fmt.Sprintf("%d", m.Warnings)},
		{"Time", fmt.Sprintf("%.4f", m.Time)},
	}
}

// Result is the outcome of linting a single unit of source text.
type Result struct {
	File       string       `json:"file,omitempty" toon:"file,omitempty"`
	Errors     []Diagnostic `json:"errors" toon:"errors"`
	Warnings   []Diagnostic `json:"warnings" toon:"warnings"`
	Declared   []string     `json:"declared" toon:"declared"`
	Used       []string     `json:"used" toon:"used"`
	BlockDepth int          `json:"block_depth" toon:"block_depth"`
	Metrics    Metrics      `json:"metrics" toon:"metrics"`

	// UnreachableLines holds the line numbers flagged as code after RETURN.
	UnreachableLines *roaring.Bitmap `json:"-" toon:"-"`
}

// HasErrors reports whether any structural error was found.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Diagnostics returns errors followed by warnings.
func (r *Result) Diagnostics() []Diagnostic {
	all := make([]Diagnostic, 0, len(r.Errors)+len(r.Warnings))
	all = append(all, r.Errors...)
	return append(all, r.Warnings...)
}

// Analysis aggregates results for several files.
type Analysis struct {
	Results            []*Result `json:"results"`
	Summary            Summary   `json:"summary"`
	TotalFilesAnalyzed int       `json:"total_files_analyzed"`
	AnalyzedAt         time.Time `json:"analyzed_at"`
	Failed             []string  `json:"failed,omitempty"`
	CacheHits          int       `json:"cache_hits"`

	// Failures holds the read error behind each entry of Failed.
	Failures fileproc.Errors `json:"-" toon:"-"`
}

// Summary provides aggregate statistics.
type Summary struct {
	TotalErrors      int            `json:"total_errors"`
	TotalWarnings    int            `json:"total_warnings"`
	TotalLines       int            `json:"total_lines"`
	FilesWithErrors  int            `json:"files_with_errors"`
	UnreachableLines uint64         `json:"unreachable_lines"`
	ByKind           map[string]int `json:"by_kind"`
}

// NewSummary creates an initialized summary.
func NewSummary() Summary {
	return Summary{ByKind: make(map[string]int)}
}

// AddResult folds one file's result into the summary.
func (s *Summary) AddResult(r *Result) {
	s.TotalErrors += len(r.Errors)
	s.TotalWarnings += len(r.Warnings)
	s.TotalLines += r.Metrics.Lines
	if r.HasErrors() {
		s.FilesWithErrors++
	}
	if r.UnreachableLines != nil {
		s.UnreachableLines += r.UnreachableLines.GetCardinality()
	}
	for _, d := range r.Diagnostics() {
		s.ByKind[string(d.Kind)]++
	}
}
