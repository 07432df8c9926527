package linter

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/panbanda/plint/internal/cache"
	"github.com/panbanda/plint/pkg/analyzer"
	"github.com/panbanda/plint/pkg/analyzer/lint"
	"github.com/panbanda/plint/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	files map[string]string
	reads atomic.Int32
}

func (m *memSource) Read(path string) ([]byte, error) {
	m.reads.Add(1)
	content, ok := m.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return []byte(content), nil
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func newSource() *memSource {
	return &memSource{files: map[string]string{
		"b.sql": "BEGIN\nRETURN;\nx := 1;\n",
		"a.sql": "v NUMBER;\nv := 1;\n",
		"c.sql": "END;\nEND;\n",
	}}
}

func TestLint(t *testing.T) {
	src := newSource()
	var ticks atomic.Int32

	ctx := analyzer.WithTracker(context.Background(), analyzer.NewTracker(func(_, _ int, _ string) {
		ticks.Add(1)
	}))

	svc := New(WithSource(src), WithClock(fixedNow))
	run, err := svc.Lint(ctx, []string{"c.sql", "b.sql", "missing.sql", "a.sql"})
	require.NoError(t, err)

	require.Len(t, run.Results, 3)
	assert.Equal(t, "a.sql", run.Results[0].File)
	assert.Equal(t, "b.sql", run.Results[1].File)
	assert.Equal(t, "c.sql", run.Results[2].File)
	assert.Equal(t, []string{"missing.sql"}, run.Failed)
	require.Len(t, run.Failures, 1)
	assert.EqualError(t, run.Failures[0].Err, "no such file")
	assert.Equal(t, int32(4), ticks.Load())

	assert.Equal(t, 3, run.TotalFilesAnalyzed)
	assert.Equal(t, 3, run.Summary.TotalErrors, "b: unmatched BEGIN, c: two unmatched END")
	assert.Equal(t, 2, run.Summary.TotalWarnings, "b: dead code and undeclared x")
	assert.Equal(t, 2, run.Summary.FilesWithErrors)
	assert.Equal(t, uint64(1), run.Summary.UnreachableLines)
	assert.Equal(t, fixedNow(), run.AnalyzedAt)
}

func TestComputeStats(t *testing.T) {
	results := []*lint.Result{
		{File: "a.sql"},
		{File: "b.sql", Errors: make([]lint.Diagnostic, 1), Warnings: make([]lint.Diagnostic, 3)},
		{File: "c.sql", Errors: make([]lint.Diagnostic, 2)},
	}
	st := computeStats(results)
	assert.InDelta(t, 2.0, st.MeanDiagnostics, 1e-9)
	assert.InDelta(t, 2.0, st.StdDevDiagnostics, 1e-9)
	assert.Equal(t, 4, st.MaxDiagnostics)
	assert.Equal(t, "b.sql", st.MaxFile)

	assert.Equal(t, Stats{}, computeStats(nil))
	single := computeStats(results[:1])
	assert.Zero(t, single.StdDevDiagnostics)
}

func TestLintUsesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Lint.TypeKeywords = []string{"DATE"}
	cfg.Lint.Workers = 1

	src := &memSource{files: map[string]string{"d.sql": "d DATE;\nn NUMBER;\n"}}
	run, err := New(WithConfig(cfg), WithSource(src)).Lint(context.Background(), []string{"d.sql"})
	require.NoError(t, err)
	require.Len(t, run.Results, 1)
	assert.Equal(t, []string{"d"}, run.Results[0].Declared)
}

func TestLintSkipsOversizedFiles(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Lint.MaxFileSize = 10

	src := &memSource{files: map[string]string{
		"small.sql": "x := 1;",
		"large.sql": "x NUMBER;\nx := 1;\n",
	}}
	run, err := New(WithConfig(cfg), WithSource(src)).Lint(context.Background(), []string{"small.sql", "large.sql"})
	require.NoError(t, err)
	require.Len(t, run.Results, 1)
	assert.Equal(t, "small.sql", run.Results[0].File)
	assert.Empty(t, run.Failed)
}

func TestLintCache(t *testing.T) {
	c, err := cache.New(filepath.Join(t.TempDir(), "cache"), 24, true)
	require.NoError(t, err)

	src := newSource()
	svc := New(WithSource(src), WithCache(c), WithClock(fixedNow))
	files := []string{"a.sql", "b.sql", "c.sql"}

	first, err := svc.Lint(context.Background(), files)
	require.NoError(t, err)
	assert.Zero(t, first.CacheHits)

	second, err := svc.Lint(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 3, second.CacheHits)
	assert.Equal(t, first.Summary, second.Summary)
	assert.True(t, second.Results[1].UnreachableLines.Contains(3))
	assert.Equal(t, first.Results[1].Warnings, second.Results[1].Warnings)

	src.files["a.sql"] = "v NUMBER;\n"
	third, err := svc.Lint(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 2, third.CacheHits, "changed content misses the cache")
	assert.Len(t, third.Results[0].Warnings, 1)

	hits, misses := c.Stats()
	assert.Equal(t, int64(5), hits)
	assert.Equal(t, int64(4), misses)
}

func TestLintCache_DropsUndecodableEntry(t *testing.T) {
	c, err := cache.New(filepath.Join(t.TempDir(), "cache"), 24, true)
	require.NoError(t, err)

	src := newSource()
	svc := New(WithSource(src), WithCache(c))
	content := []byte(src.files["a.sql"])
	require.NoError(t, c.Put(svc.cacheKey("a.sql"), cache.HashBytes(content), []byte(`"not a result"`)))

	_, ok := svc.Lookup("a.sql", content)
	assert.False(t, ok)
	_, ok = c.Get(svc.cacheKey("a.sql"), cache.HashBytes(content))
	assert.False(t, ok, "undecodable entry is deleted")

	run, err := svc.Lint(context.Background(), []string{"a.sql"})
	require.NoError(t, err)
	assert.Zero(t, run.CacheHits)
	require.Len(t, run.Results, 1)
	assert.Empty(t, run.Results[0].Warnings)
}

func TestLintCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithSource(newSource())).Lint(ctx, []string{"a.sql"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLintLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Name: "plint", Level: hclog.Debug, Output: &buf})

	_, err := New(WithSource(newSource()), WithLogger(logger)).Lint(context.Background(), []string{"a.sql", "gone.sql"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "failed to lint file")
	assert.Contains(t, buf.String(), "gone.sql")
	assert.Contains(t, buf.String(), "linted file")
}

func TestLintFile(t *testing.T) {
	svc := New(WithSource(newSource()), WithClock(fixedNow))

	r, err := svc.LintFile("c.sql")
	require.NoError(t, err)
	assert.Len(t, r.Errors, 2)
	assert.Equal(t, "c.sql", r.File)

	_, err = svc.LintFile("nope.sql")
	assert.EqualError(t, err, "no such file")
}

func TestLintFile_OverSizeLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Lint.MaxFileSize = 4

	r, err := New(WithConfig(cfg), WithSource(newSource())).LintFile("a.sql")
	require.NoError(t, err)
	assert.Nil(t, r)
}
