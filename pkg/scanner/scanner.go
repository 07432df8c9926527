// Package scanner discovers source files to lint.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/panbanda/plint/pkg/config"
)

// Scanner finds lintable files by extension, skipping excluded
// directories, configured patterns, .gitignore and .plintignore entries.
type Scanner struct {
	config *config.Config
}

// NewScanner creates a scanner. A nil cfg uses the defaults.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// ScanDir walks root and returns the lintable files beneath it, in walk
// order. Symlinks that resolve outside root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	ignore := NewIgnoreSet(root, s.config)

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped rather than aborting the walk.
			return nil
		}
		if path == root {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, realRoot) {
				return nil
			}
		}

		if d.IsDir() {
			if slices.Contains(s.config.Exclude.Dirs, d.Name()) || ignore.Match(path, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.config.HasExtension(path) && !ignore.Match(path, false) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// ScanPaths expands each path: directories are scanned, regular files are
// taken as given. The result is sorted and free of duplicates.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := s.ScanDir(p)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

// isWithinRoot reports whether path lies inside root.
func isWithinRoot(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

// FilterBySize drops files larger than maxSize and returns how many were
// skipped. A maxSize of 0 keeps everything.
func FilterBySize(files []string, maxSize int64) ([]string, int) {
	if maxSize <= 0 {
		return files, 0
	}

	kept := make([]string, 0, len(files))
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && info.Size() <= maxSize {
			kept = append(kept, f)
		}
	}
	return kept, len(files) - len(kept)
}
