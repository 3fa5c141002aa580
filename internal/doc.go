// Package internal contains the implementation packages of assetloader.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - paths: path normalization and external URL detection
//   - collection: input and watch file sets with canonical paths
//   - naming: deterministic output file names
//   - build: rebuild-if-stale compiler, content filters and metrics
//   - integrity: SRI hashing and the persistent TTL cache
//   - tags: script, stylesheet and preload markup plus bundle loaders
//   - assets: factory wiring a directory into a rendered bundle
//   - watcher: file system monitoring with debouncing
//   - notify: WebSocket hub announcing rebuilt artifacts
//   - config, logging, errors, observability: ambient support
//
// # Data Flow
//
// A bundle request flows through the packages in one direction:
//
//   - collection canonicalizes the caller's files and the watch globs
//   - build names the artifact from the files and their newest mtime
//     and writes it only when missing
//   - integrity hashes the artifact once per mtime and caches the value
//   - tags renders the element that references it
//
// The watch command adds watcher and notify on top: a debounced batch of
// changes triggers one Generate and one broadcast.
package internal
