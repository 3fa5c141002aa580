// Package finder enumerates files under a directory that match glob
// patterns such as "*.css", "vendor/*.js" or "**/theme/*.sass".
package finder

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Find walks root and returns every regular file matching one of patterns,
// sorted lexically. A missing root yields no files. Malformed patterns
// never match.
func Find(root string, patterns ...string) ([]string, error) {
	patterns = NormalizePatterns(patterns)
	if len(patterns) == 0 {
		return nil, nil
	}

	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var found []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped
			if d != nil && d.IsDir() && p != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		if Match(patterns, rel) {
			found = append(found, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(found)
	return found, nil
}

// Match reports whether rel, a path relative to the search root, matches
// any of patterns. Patterns without a separator match the base name at any
// depth; the others match the whole relative path and may use "**".
func Match(patterns []string, rel string) bool {
	rel = filepath.ToSlash(rel)
	base := path.Base(rel)
	for _, pattern := range patterns {
		target := rel
		if !strings.Contains(pattern, "/") {
			target = base
		}
		if ok, err := doublestar.Match(pattern, target); err == nil && ok {
			return true
		}
	}
	return false
}

// NormalizePatterns drops blank patterns and converts the rest to slash
// form without a leading "./".
func NormalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, strings.TrimPrefix(filepath.ToSlash(p), "./"))
	}
	return out
}
