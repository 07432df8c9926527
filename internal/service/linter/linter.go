// Package linter orchestrates multi-file lint runs: reading, caching,
// parallel analysis, and aggregation.
package linter

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/panbanda/plint/internal/cache"
	"github.com/panbanda/plint/pkg/analyzer/lint"
	"github.com/panbanda/plint/pkg/config"
	"github.com/panbanda/plint/pkg/source"
	"gonum.org/v1/gonum/stat"
)

// Service runs the lint analyzer over many files.
type Service struct {
	config *config.Config
	src    source.ContentSource
	cache  *cache.Cache
	logger hclog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithSource sets where file content is read from.
func WithSource(src source.ContentSource) Option {
	return func(s *Service) {
		s.src = src
	}
}

// WithCache enables result caching.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLogger sets the logger for per-file diagnostics.
func WithLogger(l hclog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock sets the time source for analyzer timing and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a new lint service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.DefaultConfig(),
		src:    source.NewFilesystem(),
		logger: hclog.NewNullLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats describes how diagnostics are spread across files.
type Stats struct {
	MeanDiagnostics   float64 `json:"mean_diagnostics"`
	StdDevDiagnostics float64 `json:"stddev_diagnostics"`
	MaxDiagnostics    int     `json:"max_diagnostics"`
	MaxFile           string  `json:"max_file,omitempty"`
}

// Run is the outcome of linting a set of files.
type Run struct {
	*lint.Analysis
	Stats Stats `json:"stats"`
}

func (s *Service) analyzer() *lint.Analyzer {
	opts := []lint.Option{
		lint.WithTypeKeywords(s.config.Lint.TypeKeywords),
		lint.WithMaxFileSize(s.config.Lint.MaxFileSize),
		lint.WithWorkers(s.config.Lint.Workers),
		lint.WithClock(s.now),
	}
	if s.cache != nil {
		opts = append(opts, lint.WithResultCache(s))
	}
	return lint.New(opts...)
}

// LintFile lints a single file. A file over the size limit yields a nil
// result and no error.
func (s *Service) LintFile(path string) (*lint.Result, error) {
	run, err := s.Lint(context.Background(), []string{path})
	if err != nil {
		return nil, err
	}
	if len(run.Failures) > 0 {
		return nil, run.Failures[0].Err
	}
	if len(run.Results) == 0 {
		return nil, nil
	}
	return run.Results[0], nil
}

// Lint analyzes files concurrently. Results are ordered by path; files
// that could not be read are listed in Run.Failed. Progress is reported to
// a tracker attached with analyzer.WithTracker.
func (s *Service) Lint(ctx context.Context, files []string) (*Run, error) {
	a := s.analyzer()
	defer a.Close()

	analysis, err := a.Analyze(ctx, files, s.src)
	if err != nil {
		return nil, err
	}

	sort.Slice(analysis.Results, func(i, j int) bool {
		return analysis.Results[i].File < analysis.Results[j].File
	})
	sort.Strings(analysis.Failed)
	for _, r := range analysis.Results {
		s.logger.Debug("linted file", "file", r.File,
			"errors", len(r.Errors), "warnings", len(r.Warnings))
	}
	for _, e := range analysis.Failures {
		s.logger.Warn("failed to lint file", "file", e.Path, "error", e.Err)
	}

	return &Run{
		Analysis: analysis,
		Stats:    computeStats(analysis.Results),
	}, nil
}

func computeStats(results []*lint.Result) Stats {
	if len(results) == 0 {
		return Stats{}
	}

	counts := make([]float64, len(results))
	var st Stats
	for i, r := range results {
		n := len(r.Errors) + len(r.Warnings)
		counts[i] = float64(n)
		if n > st.MaxDiagnostics {
			st.MaxDiagnostics = n
			st.MaxFile = r.File
		}
	}
	st.MeanDiagnostics = stat.Mean(counts, nil)
	if len(counts) > 1 {
		st.StdDevDiagnostics = stat.StdDev(counts, nil)
	}
	return st
}

// cachedResult is the on-disk form of a lint.Result.
type cachedResult struct {
	*lint.Result
	Unreachable []uint32 `json:"unreachable"`
}

var _ lint.ResultCache = (*Service)(nil)

// Lookup implements lint.ResultCache.
func (s *Service) Lookup(path string, content []byte) (*lint.Result, bool) {
	data, ok := s.cache.Get(s.cacheKey(path), cache.HashBytes(content))
	if !ok {
		return nil, false
	}
	var cr cachedResult
	if err := json.Unmarshal(data, &cr); err != nil || cr.Result == nil {
		if err := s.cache.Delete(s.cacheKey(path)); err != nil {
			s.logger.Debug("cache delete failed", "file", path, "error", err)
		}
		return nil, false
	}
	cr.Result.UnreachableLines = roaring.BitmapOf(cr.Unreachable...)
	s.logger.Trace("cache hit", "file", path)
	return cr.Result, true
}

// Store implements lint.ResultCache.
func (s *Service) Store(path string, content []byte, r *lint.Result) {
	cr := cachedResult{Result: r}
	if r.UnreachableLines != nil {
		cr.Unreachable = r.UnreachableLines.ToArray()
	}
	data, err := json.Marshal(cr)
	if err != nil {
		return
	}
	if err := s.cache.Put(s.cacheKey(path), cache.HashBytes(content), data); err != nil {
		s.logger.Debug("cache write failed", "file", path, "error", err)
	}
}

// cacheKey includes the type keywords, since they change the outcome.
func (s *Service) cacheKey(path string) string {
	key := path
	for _, kw := range s.config.Lint.TypeKeywords {
		key += "\x00" + kw
	}
	return key
}
