package lint

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/plint/internal/fileproc"
	"github.com/panbanda/plint/pkg/analyzer"
)

// DefaultTypeKeywords are the keywords that mark a declaration when they
// follow an identifier.
var DefaultTypeKeywords = []string{"NUMBER", "VARCHAR2", "INT", "BOOLEAN"}

// Analyzer runs the single-pass lint over source text. It holds only
// configuration and is safe for concurrent use.
type Analyzer struct {
	lexicon     lexicon
	maxFileSize int64
	workers     int
	cache       ResultCache
	now         func() time.Time
}

// Compile-time check that Analyzer implements SourceFileAnalyzer.
var _ analyzer.SourceFileAnalyzer[*Analysis] = (*Analyzer)(nil)

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithTypeKeywords replaces the recognized type keywords.
// An empty list keeps the defaults.
func WithTypeKeywords(keywords []string) Option {
	return func(a *Analyzer) {
		if len(keywords) > 0 {
			a.lexicon = newLexicon(keywords)
		}
	}
}

// WithMaxFileSize skips content larger than maxSize bytes (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithWorkers bounds how many files Analyze lints at once (0 = default).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithResultCache lets Analyze reuse results for unchanged content.
func WithResultCache(c ResultCache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithClock sets the time source used for the Time metric.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// New creates a new lint analyzer with default options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		lexicon: defaultLexicon,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// scanState is owned by exactly one pass.
type scanState struct {
	declared    map[string]struct{}
	used        map[string]struct{}
	blockDepth  int
	afterReturn bool
	errors      []Diagnostic
	warnings    []Diagnostic
	unreachable *roaring.Bitmap
}

func newScanState() *scanState {
	return &scanState{
		declared:    make(map[string]struct{}),
		used:        make(map[string]struct{}),
		unreachable: roaring.New(),
	}
}

// AnalyzeLines runs the full pass over materialized lines: per-line
// tracking, reconciliation of declared and used sets, and metrics.
func (a *Analyzer) AnalyzeLines(lines []string) *Result {
	start := a.now()
	st := newScanState()

	for i, raw := range lines {
		line, ok := normalizeLine(raw)
		if !ok {
			continue
		}
		st.processLine(SourceLine{Number: i + 1, Text: line}, a.lexicon.tokenize(line))
	}

	st.reconcile()
	if st.blockDepth > 0 {
		st.errors = append(st.errors, Diagnostic{
			Severity: SeverityError,
			Kind:     KindUnmatchedBegin,
			Message:  fmt.Sprintf("Unmatched BEGIN: %d block(s) not closed.", st.blockDepth),
		})
	}

	elapsed := a.now().Sub(start).Seconds()
	return &Result{
		Errors:           nonNil(st.errors),
		Warnings:         nonNil(st.warnings),
		Declared:         sortedKeys(st.declared),
		Used:             sortedKeys(st.used),
		BlockDepth:       st.blockDepth,
		UnreachableLines: st.unreachable,
		Metrics: Metrics{
			Lines:    len(lines),
			Declared: len(st.declared),
			Used:     len(st.used),
			Errors:   len(st.errors),
			Warnings: len(st.warnings),
			Time:     math.Round(elapsed*1e4) / 1e4,
		},
	}
}

func (st *scanState) processLine(line SourceLine, tokens []Token) {
	st.trackDeclarations(tokens)
	st.trackUsage(tokens, KindAssign)
	st.trackUsage(tokens, KindEquals)
	st.trackBlocks(line, tokens)
	st.trackReturn(line, tokens)
}

// trackDeclarations records the identifier preceding each type keyword.
// A type keyword in first position has no identifier and is ignored. A
// preceding token made only of ';' declares the empty name.
func (st *scanState) trackDeclarations(tokens []Token) {
	for j := 1; j < len(tokens); j++ {
		if tokens[j].Kind != KindTypeKeyword {
			continue
		}
		st.declared[strings.ToLower(strings.Trim(tokens[j-1].Text, ";"))] = struct{}{}
	}
}

// trackUsage records the token before the first operator of the given kind.
// An operator at position 0 has no target and is skipped.
func (st *scanState) trackUsage(tokens []Token, op TokenKind) {
	idx := indexOf(tokens, op)
	if idx <= 0 {
		return
	}
	st.used[strings.ToLower(tokens[idx-1].Text)] = struct{}{}
}

// trackBlocks adjusts the nesting counter. Both adjustments may apply to
// the same line. The counter is never clamped after going negative.
func (st *scanState) trackBlocks(line SourceLine, tokens []Token) {
	if strings.HasPrefix(strings.ToUpper(line.Text), "BEGIN") {
		st.blockDepth++
	}
	if indexOf(tokens, KindBlockEnd) < 0 {
		return
	}
	st.blockDepth--
	if st.blockDepth < 0 {
		st.errors = append(st.errors, Diagnostic{
			Severity: SeverityError,
			Kind:     KindUnmatchedEnd,
			Line:     line.Number,
			Message:  fmt.Sprintf("Line %d: unmatched END.", line.Number),
		})
	}
}

// trackReturn flags executable lines once any RETURN has been seen.
// The flag stays set for the rest of the pass, across block boundaries.
func (st *scanState) trackReturn(line SourceLine, tokens []Token) {
	if indexOf(tokens, KindReturn) >= 0 {
		st.afterReturn = true
		return
	}
	if !st.afterReturn {
		return
	}
	for _, t := range tokens {
		if isExecutable(t) {
			st.unreachable.Add(uint32(line.Number))
			st.warnings = append(st.warnings, Diagnostic{
				Severity: SeverityWarning,
				Kind:     KindUnreachableCode,
				Line:     line.Number,
				Message:  fmt.Sprintf("Line %d: code after RETURN statement.", line.Number),
			})
			return
		}
	}
}

// reconcile compares the whole-file sets. Declaration order relative to use
// is not tracked, so "used before declaration" means used and never declared.
func (st *scanState) reconcile() {
	for _, name := range difference(st.declared, st.used) {
		st.warnings = append(st.warnings, Diagnostic{
			Severity: SeverityWarning,
			Kind:     KindUnusedVariable,
			Symbol:   name,
			Message:  fmt.Sprintf("Variable %s is declared but never used.", name),
		})
	}
	for _, name := range difference(st.used, st.declared) {
		st.warnings = append(st.warnings, Diagnostic{
			Severity: SeverityWarning,
			Kind:     KindUndeclaredVariable,
			Symbol:   name,
			Message:  fmt.Sprintf("Variable %s used before declaration.", name),
		})
	}
}

// difference returns the sorted members of a that are not in b.
func difference(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonNil(d []Diagnostic) []Diagnostic {
	if d == nil {
		return []Diagnostic{}
	}
	return d
}

// AnalyzeFileFromSource lints content read from path. Content above the
// configured size limit yields a nil result.
func (a *Analyzer) AnalyzeFileFromSource(path string, content []byte) (*Result, error) {
	if a.maxFileSize > 0 && int64(len(content)) > a.maxFileSize {
		return nil, nil
	}
	result := a.AnalyzeLines(SplitLines(content))
	result.File = path
	return result, nil
}

// ContentSource is an alias for analyzer.ContentSource.
type ContentSource = analyzer.ContentSource

// ResultCache serves results for content that was linted before.
// Implementations must be safe for concurrent use.
type ResultCache interface {
	Lookup(path string, content []byte) (*Result, bool)
	Store(path string, content []byte, r *Result)
}

type fileOutcome struct {
	result *Result
	cached bool
}

// Analyze lints files from src in parallel. Results keep the input order;
// files over the size limit are left out and unreadable files are listed
// in Analysis.Failed. Progress is tracked via context using
// analyzer.WithTracker.
func (a *Analyzer) Analyze(ctx context.Context, files []string, src ContentSource) (*Analysis, error) {
	outcomes, errs := fileproc.ForEachFile(ctx, files, fileproc.Options{Workers: a.workers},
		func(path string) (fileOutcome, error) {
			content, err := src.Read(path)
			if err != nil {
				return fileOutcome{}, err
			}
			if a.maxFileSize > 0 && int64(len(content)) > a.maxFileSize {
				return fileOutcome{}, nil
			}
			if a.cache != nil {
				if r, ok := a.cache.Lookup(path, content); ok {
					return fileOutcome{result: r, cached: true}, nil
				}
			}
			r, err := a.AnalyzeFileFromSource(path, content)
			if err != nil || r == nil {
				return fileOutcome{}, err
			}
			if a.cache != nil {
				a.cache.Store(path, content, r)
			}
			return fileOutcome{result: r}, nil
		})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analysis := &Analysis{
		Results:    make([]*Result, 0, len(outcomes)),
		Summary:    NewSummary(),
		AnalyzedAt: a.now(),
		Failures:   errs,
		Failed:     errs.Paths(),
	}
	for _, o := range outcomes {
		if o.result == nil {
			continue
		}
		if o.cached {
			analysis.CacheHits++
		}
		analysis.Results = append(analysis.Results, o.result)
		analysis.Summary.AddResult(o.result)
	}
	analysis.TotalFilesAnalyzed = len(analysis.Results)
	return analysis, nil
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {
}
