package scanner

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/plint/pkg/config"
)

// IgnoreFile holds extra gitignore-style patterns, read from the scan root.
const IgnoreFile = ".plintignore"

// IgnoreSet matches paths against every exclusion source. Each source is
// scoped to its own directory through the pattern domain, so config
// patterns apply from the scan root and .gitignore files from the
// repository root.
type IgnoreSet struct {
	base    string
	matcher gitignore.Matcher
}

// NewIgnoreSet collects the exclusion patterns that apply under root,
// which should be absolute. A nil cfg uses the defaults.
func NewIgnoreSet(root string, cfg *config.Config) *IgnoreSet {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	base := root
	var patterns []gitignore.Pattern
	if cfg.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			base = gitRoot
			if found, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil); err == nil {
				patterns = found
			}
		}
	}

	domain := splitPath(base, root)
	for _, p := range cfg.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(p, domain))
	}
	for _, p := range readIgnoreFile(filepath.Join(root, IgnoreFile)) {
		patterns = append(patterns, gitignore.ParsePattern(p, domain))
	}

	ig := &IgnoreSet{base: base}
	if len(patterns) > 0 {
		ig.matcher = gitignore.NewMatcher(patterns)
	}
	return ig
}

// Match reports whether path is ignored. Paths outside the base are never
// ignored.
func (ig *IgnoreSet) Match(path string, isDir bool) bool {
	if ig.matcher == nil {
		return false
	}
	parts := splitPath(ig.base, path)
	if parts == nil {
		return false
	}
	return ig.matcher.Match(parts, isDir)
}

// splitPath returns the components of target relative to base, or nil
// when target is base itself or lies outside it.
func splitPath(base, target string) []string {
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}

// readIgnoreFile returns the non-blank, non-comment lines of path.
func readIgnoreFile(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// findGitRoot walks up from start looking for a .git entry. It returns ""
// outside a repository.
func findGitRoot(start string) string {
	for dir := start; ; {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
