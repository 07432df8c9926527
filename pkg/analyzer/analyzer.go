// Package analyzer holds the contracts shared by plint analyzers.
package analyzer

import "context"

// ContentSource provides file content to analyzers.
type ContentSource interface {
	Read(path string) ([]byte, error)
}

// SourceFileAnalyzer analyzes a set of files whose content comes from a
// ContentSource. The context carries cancellation and an optional Tracker.
type SourceFileAnalyzer[T any] interface {
	Analyze(ctx context.Context, files []string, src ContentSource) (T, error)

	// Close releases any resources held by the analyzer.
	Close()
}
