// Package types provides common type definitions shared by the build,
// integrity and tag packages. It exists to avoid circular dependencies
// between them.
package types

import "time"

// Default option values.
const (
	DefaultTTL           = 7200 * time.Second
	DefaultHashAlgorithm = "sha384"
)

// BuildOptions is the immutable pipeline configuration passed to the
// compiler, the integrity storage and the tag builder.
type BuildOptions struct {
	// JoinFiles merges every input into one artifact. When false each input
	// gets its own artifact.
	JoinFiles bool
	// CheckLastModified enables watch-set staleness detection.
	CheckLastModified bool
	// TTL bounds how long a stored integrity hash is trusted.
	TTL time.Duration
	// HashAlgorithm is the SRI digest (sha256, sha384 or sha512).
	HashAlgorithm string
}

// DefaultBuildOptions returns the options used when nothing is configured.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		JoinFiles:         true,
		CheckLastModified: true,
		TTL:               DefaultTTL,
		HashAlgorithm:     DefaultHashAlgorithm,
	}
}

// GeneratedArtifact describes one compiled output as of the latest
// generation call, whether or not its bytes were rewritten.
type GeneratedArtifact struct {
	// File is the generated file name inside Path.
	File string `json:"file" yaml:"file"`
	// Path is the output directory.
	Path string `json:"path" yaml:"path"`
	// Time is the newest modification time (Unix seconds) across the watch
	// set, or 0 when staleness checks are disabled.
	Time int64 `json:"time" yaml:"time"`
	// Source lists the input files merged into the artifact.
	Source []string `json:"source" yaml:"source"`
	// Rebuilt is true when this call wrote the file.
	Rebuilt bool `json:"rebuilt" yaml:"rebuilt"`
}

// FullPath returns the on-disk location of the artifact.
func (a GeneratedArtifact) FullPath() string {
	return a.Path + "/" + a.File
}

// AssetKind identifies the kind of asset a compiler produces.
type AssetKind int

const (
	AssetJavaScript AssetKind = iota
	AssetStylesheet
)

// String returns the string representation of the AssetKind
func (k AssetKind) String() string {
	switch k {
	case AssetJavaScript:
		return "js"
	case AssetStylesheet:
		return "css"
	default:
		return "unknown"
	}
}

// ParseAssetKind maps "js"/"css" to an AssetKind.
func ParseAssetKind(s string) (AssetKind, bool) {
	switch s {
	case "js", "javascript":
		return AssetJavaScript, true
	case "css", "stylesheet":
		return AssetStylesheet, true
	default:
		return 0, false
	}
}
