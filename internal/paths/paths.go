// Package paths normalizes and resolves asset paths and tells local files
// apart from externally hosted references.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalize collapses "." and ".." segments and repeated separators without
// touching the filesystem. A leading separator is preserved. ".." segments
// that would climb above the first segment are dropped.
func Normalize(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")

	root := ""
	if strings.HasPrefix(path, "/") {
		root = "/"
	}

	pieces := strings.Split(strings.Trim(path, "/"), "/")
	stack := make([]string, 0, len(pieces))

	for _, piece := range pieces {
		switch piece {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, piece)
		}
	}

	return root + strings.Join(stack, "/")
}

// IsExternal reports whether ref points at a remotely hosted asset
// (http://, https:// or protocol-relative //).
func IsExternal(ref string) bool {
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "//")
}

// Resolve resolves path against the process working directory.
func Resolve(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return ResolveIn(cwd, path)
}

// ResolveIn treats path as relative to root (a leading separator does not
// escape root) and returns the absolute filesystem path. Symlinks are
// followed when the target exists; otherwise the lexically joined path is
// returned and the caller must check existence itself.
func ResolveIn(root, path string) string {
	joined := strings.TrimRight(root, "/") + "/" + strings.TrimLeft(Normalize(path), "/")

	if abs, err := filepath.Abs(joined); err == nil {
		joined = abs
	}

	if real, err := filepath.EvalSymlinks(joined); err == nil {
		return real
	}

	return joined
}

// Canonical returns the absolute, symlink-resolved form of a filesystem
// path, anchoring relative paths at the working directory. A path that
// does not exist is returned absolute and cleaned. Every integrity cache
// key goes through Canonical so one file never has two keys.
func Canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}
