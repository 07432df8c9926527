package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/plint/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func relAll(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	require.NotNil(t, s)
	assert.NotNil(t, s.config)

	cfg := config.DefaultConfig()
	assert.Same(t, cfg, NewScanner(cfg).config)
}

func TestScanDir(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"proc.sql":             "BEGIN\nEND;\n",
		"pkg/body.pkb":         "x NUMBER;\n",
		"pkg/spec.PKS":         "y INT;\n",
		"README.md":            "# docs\n",
		"main.go":              "package main\n",
		"vendor/lib.sql":       "x := 1;\n",
		"node_modules/dep.sql": "x := 1;\n",
	})

	files, err := NewScanner(nil).ScanDir(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"proc.sql", "pkg/body.pkb", "pkg/spec.PKS"}, relAll(t, root, files))
}

func TestScanDirPatterns(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.sql":           "",
		"a_gen.sql":       "",
		"generated/b.sql": "",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false
	cfg.Exclude.Patterns = []string{"*_gen.sql", "generated/"}

	files, err := NewScanner(cfg).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.sql"}, relAll(t, root, files))
}

func TestScanDirGitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	writeFiles(t, root, map[string]string{
		".gitignore":    "scratch/\n*.bak.sql\n",
		"keep.sql":      "",
		"old.bak.sql":   "",
		"scratch/x.sql": "",
	})

	files, err := NewScanner(nil).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.sql"}, relAll(t, root, files))

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false
	files, err = NewScanner(cfg).ScanDir(root)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestScanDirPlintignore(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		IgnoreFile:         "# generated code\nmigrations/\n\n*_tmp.sql\n",
		"a.sql":            "",
		"b_tmp.sql":        "",
		"migrations/1.sql": "",
	})

	files, err := NewScanner(nil).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.sql"}, relAll(t, root, files))
}

func TestScanDirGitignoreFromSubdir(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(repo, ".git"), 0o755))
	writeFiles(t, repo, map[string]string{
		".gitignore":       "db/scratch/\n",
		"db/keep.sql":      "",
		"db/scratch/x.sql": "",
	})

	root := filepath.Join(repo, "db")
	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = []string{"/keep.sql"}

	files, err := NewScanner(cfg).ScanDir(root)
	require.NoError(t, err)
	assert.Empty(t, files, "repo .gitignore and root-anchored config patterns both apply")
}

func TestSplitPath(t *testing.T) {
	assert.Nil(t, splitPath("/a", "/a"))
	assert.Nil(t, splitPath("/a", "/b/c"))
	assert.Equal(t, []string{"b", "c.sql"}, splitPath("/a", "/a/b/c.sql"))
}

func TestScanPaths(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"b.sql":     "",
		"a.sql":     "",
		"notes.txt": "",
		"sub/c.sql": "",
	})

	s := NewScanner(nil)
	files, err := s.ScanPaths([]string{
		root,
		filepath.Join(root, "a.sql"),
		filepath.Join(root, "notes.txt"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.sql", "b.sql", "notes.txt", "sub/c.sql"}, relAll(t, root, files))

	_, err = s.ScanPaths([]string{filepath.Join(root, "missing")})
	assert.Error(t, err)
}

func TestIsWithinRoot(t *testing.T) {
	assert.True(t, isWithinRoot("/root/a/b", "/root/a"))
	assert.True(t, isWithinRoot("/root/a", "/root/a"))
	assert.False(t, isWithinRoot("/root/ab", "/root/a"))
	assert.False(t, isWithinRoot("/etc", "/root/a"))
}

func TestFilterBySize(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"small.sql": "x",
		"large.sql": "xxxxxxxxxx",
	})
	small := filepath.Join(root, "small.sql")
	large := filepath.Join(root, "large.sql")

	files, skipped := FilterBySize([]string{small, large, filepath.Join(root, "gone.sql")}, 5)
	assert.Equal(t, []string{small}, files)
	assert.Equal(t, 2, skipped)

	files, skipped = FilterBySize([]string{small, large}, 0)
	assert.Len(t, files, 2)
	assert.Zero(t, skipped)
}
