// Package interfaces provides the core abstractions of the asset pipeline.
// These interfaces reduce coupling between packages and let tests swap in
// fakes for the collection, naming and integrity collaborators.
package interfaces

import "time"

// FileCollection tracks the compiled inputs and the watch files of one
// build invocation.
type FileCollection interface {
	// Root returns the base directory inputs are resolved against
	Root() string

	// AddFile adds a compile input; missing files are dropped silently
	AddFile(path string)

	// AddFiles adds several compile inputs
	AddFiles(paths []string)

	// AddWatchFile adds a file whose modification invalidates outputs
	AddWatchFile(path string)

	// AddWatchFiles adds several watch files
	AddWatchFiles(paths []string)

	// Files returns canonical compile inputs in insertion order
	Files() []string

	// WatchFiles returns canonical watch files in insertion order
	WatchFiles() []string

	// Clear empties both sets
	Clear()
}

// NamingConvention maps an input list and a timestamp to an output name.
type NamingConvention interface {
	Filename(files []string, lastModified int64) string
}

// IntegrityCache stores SRI hashes keyed by absolute file path.
type IntegrityCache interface {
	Has(path string) bool
	Get(path string) (string, bool)
	Set(path, integrity string)
	Delete(path string)
	Clear()
}

// CacheStats represents cache performance statistics
type CacheStats interface {
	GetSize() int64
	GetHits() int64
	GetMisses() int64
	GetHitRate() float64
	GetEvictions() int64
}

// BuildMetrics represents compiler write-count instrumentation
type BuildMetrics interface {
	GetGenerations() int64
	GetRebuilds() int64
	GetSkips() int64
	GetLastDuration() time.Duration
	Reset()
}
