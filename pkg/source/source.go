// Package source provides file content from the working tree or from a
// git revision.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/panbanda/plint/pkg/analyzer"
)

// ContentSource provides file content from a specific source.
type ContentSource = analyzer.ContentSource

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// GitSource reads files as they exist at one git revision.
// It is safe for concurrent use by multiple goroutines.
type GitSource struct {
	root string
	tree *object.Tree
	mu   sync.Mutex
}

// NewGit opens the repository containing path and resolves rev
// (a branch, tag, or commit hash) to a tree.
func NewGit(path, rev string) (*GitSource, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", rev, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree for %s: %w", hash, err)
	}

	return &GitSource{root: wt.Filesystem.Root(), tree: tree}, nil
}

// Root returns the repository's working tree root.
func (g *GitSource) Root() string {
	return g.root
}

// Read implements ContentSource. Absolute paths are taken relative to the
// repository root.
func (g *GitSource) Read(path string) ([]byte, error) {
	rel, err := g.relative(path)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	f, err := g.tree.File(rel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	content, err := f.Contents()
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}

func (g *GitSource) relative(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}
	rel, err := filepath.Rel(g.root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
