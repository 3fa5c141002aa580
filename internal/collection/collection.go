// Package collection tracks the input and watch files of a single build
// invocation.
package collection

import (
	"os"

	"github.com/conneroisu/assetloader/internal/interfaces"
	"github.com/conneroisu/assetloader/internal/paths"
)

// FileCollection owns a root directory and two ordered, deduplicated sets of
// canonical paths: compile inputs and watch files. Only paths that existed
// at the moment they were added are ever stored.
type FileCollection struct {
	root       string
	files      []string
	watchFiles []string
	seenFiles  map[string]struct{}
	seenWatch  map[string]struct{}
}

var _ interfaces.FileCollection = (*FileCollection)(nil)

// New creates an empty collection rooted at root.
func New(root string) *FileCollection {
	return &FileCollection{
		root:      root,
		seenFiles: make(map[string]struct{}),
		seenWatch: make(map[string]struct{}),
	}
}

// Root returns the base directory.
func (c *FileCollection) Root() string {
	return c.root
}

// AddFile adds a compile input. Paths that do not exist are dropped.
func (c *FileCollection) AddFile(path string) {
	if canonical, ok := c.Canonicalize(path); ok {
		c.files = appendUnique(c.files, c.seenFiles, canonical)
	}
}

// AddFiles adds several compile inputs in order.
func (c *FileCollection) AddFiles(paths []string) {
	for _, p := range paths {
		c.AddFile(p)
	}
}

// AddWatchFile adds a file whose modification invalidates the outputs.
func (c *FileCollection) AddWatchFile(path string) {
	if canonical, ok := c.Canonicalize(path); ok {
		c.watchFiles = appendUnique(c.watchFiles, c.seenWatch, canonical)
	}
}

// AddWatchFiles adds several watch files in order.
func (c *FileCollection) AddWatchFiles(paths []string) {
	for _, p := range paths {
		c.AddWatchFile(p)
	}
}

// Files returns the canonical inputs in insertion order.
func (c *FileCollection) Files() []string {
	out := make([]string, len(c.files))
	copy(out, c.files)
	return out
}

// WatchFiles returns the canonical watch files in insertion order.
func (c *FileCollection) WatchFiles() []string {
	out := make([]string, len(c.watchFiles))
	copy(out, c.watchFiles)
	return out
}

// Clear empties both sets so the collection can be reused.
func (c *FileCollection) Clear() {
	c.files = nil
	c.watchFiles = nil
	c.seenFiles = make(map[string]struct{})
	c.seenWatch = make(map[string]struct{})
}

// Canonicalize tries root + "/" + path first, then path as given. The first
// candidate that exists on disk wins; ok is false when neither exists.
func (c *FileCollection) Canonicalize(path string) (string, bool) {
	if path == "" {
		return "", false
	}

	if c.root != "" {
		rel := paths.Normalize(c.root + "/" + path)
		if exists(rel) {
			return paths.Canonical(rel), true
		}
	}

	given := paths.Normalize(path)
	if exists(given) {
		return paths.Canonical(given), true
	}

	return "", false
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func appendUnique(list []string, seen map[string]struct{}, path string) []string {
	if _, dup := seen[path]; dup {
		return list
	}
	seen[path] = struct{}{}
	return append(list, path)
}
