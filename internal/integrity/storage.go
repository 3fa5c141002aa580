// Package integrity computes Subresource Integrity hashes and keeps them in a
// small persistent cache keyed by absolute file path.
package integrity

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/conneroisu/assetloader/internal/errors"
	"github.com/conneroisu/assetloader/internal/interfaces"
	"github.com/conneroisu/assetloader/internal/logging"
	"github.com/conneroisu/assetloader/internal/types"
)

// DefaultStoragePath is where the cache lives unless configured otherwise.
const DefaultStoragePath = "application/cache/0/cache/assets_storage_integrity.cache"

// Entry is one cached hash. Mtime is the file's modification time in Unix
// seconds when the hash was stored; StoredAt is the storage time.
type Entry struct {
	Integrity string `json:"integrity"`
	Mtime     int64  `json:"mtime"`
	StoredAt  int64  `json:"stored_at"`
}

// Storage is a TTL and mtime validated map from path to integrity string,
// persisted as JSON after every mutation. Persistence failures never
// propagate: the cache keeps working in memory.
//
// Access is serialized within the process only. Two processes sharing a
// storage file race on the last write.
type Storage struct {
	path    string
	ttl     time.Duration
	now     func() time.Time
	logger  logging.Logger
	entries map[string]Entry

	hits      int64
	misses    int64
	evictions int64

	mu sync.Mutex
}

var (
	_ interfaces.IntegrityCache = (*Storage)(nil)
	_ interfaces.CacheStats     = (*Storage)(nil)
)

// Option customizes a Storage.
type Option func(*Storage)

// WithTTL sets how long an entry stays valid.
func WithTTL(ttl time.Duration) Option {
	return func(s *Storage) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger injects a logger for persistence failures.
func WithLogger(logger logging.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger.WithComponent("integrity")
		}
	}
}

// Open loads the storage file at path. A missing or undecodable file
// yields an empty store.
func Open(path string, options ...Option) *Storage {
	if path == "" {
		path = DefaultStoragePath
	}

	s := &Storage{
		path:    path,
		ttl:     types.DefaultTTL,
		now:     time.Now,
		logger:  logging.NewNopLogger(),
		entries: make(map[string]Entry),
	}
	for _, option := range options {
		option(s)
	}

	s.load()

	return s
}

func (s *Storage) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn(context.Background(), err, "Cannot read integrity storage", "path", s.path)
		}
		return
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn(context.Background(), err, "Discarding corrupt integrity storage", "path", s.path)
		return
	}
	// A file holding JSON null decodes to a nil map
	if entries == nil {
		entries = make(map[string]Entry)
	}
	s.entries = entries
}

// Path returns the storage file location.
func (s *Storage) Path() string {
	return s.path
}

// TTL returns the entry lifetime.
func (s *Storage) TTL() time.Duration {
	return s.ttl
}

// Has reports whether a valid entry exists for path. An entry whose file
// disappeared, changed mtime or outlived the TTL is removed and the store
// persisted.
func (s *Storage) Has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.valid(path)
	return ok
}

// Get returns the integrity for path after the same validity check as Has.
func (s *Storage) Get(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.valid(path)
	if !ok {
		s.misses++
		return "", false
	}

	s.hits++
	return entry.Integrity, true
}

func (s *Storage) valid(path string) (Entry, bool) {
	entry, ok := s.entries[path]
	if !ok {
		return Entry{}, false
	}

	info, err := os.Stat(path)
	switch {
	case err != nil:
	case info.ModTime().Unix() != entry.Mtime:
	case s.now().Unix()-entry.StoredAt > int64(s.ttl/time.Second):
	default:
		return entry, true
	}

	delete(s.entries, path)
	s.evictions++
	s.persist()

	return Entry{}, false
}

// Set stores integrity for path with the file's current mtime. Nothing is
// stored when the file cannot be stated.
func (s *Storage) Set(path, integrity string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[path] = Entry{
		Integrity: integrity,
		Mtime:     info.ModTime().Unix(),
		StoredAt:  s.now().Unix(),
	}
	s.persist()
}

// Delete removes the entry for path if present.
func (s *Storage) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[path]; !ok {
		return
	}
	delete(s.entries, path)
	s.persist()
}

// Clear removes every entry.
func (s *Storage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry)
	s.persist()
}

// Entries returns a copy of the raw entries without validating them.
func (s *Storage) Entries() map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// persist writes the whole map. Callers hold mu.
func (s *Storage) persist() {
	if err := s.write(); err != nil {
		s.logger.Warn(context.Background(), err, "Cannot persist integrity storage", "path", s.path)
	}
}

func (s *Storage) write() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s.entries); err != nil {
		return errors.NewInternalError(errors.CodeStorageEncode, "cannot encode integrity storage", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO(err, errors.CodeOutputWrite, "cannot create storage directory").WithPath(dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.WrapIO(err, errors.CodeOutputWrite, "cannot create storage file").WithPath(s.path)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.WrapIO(err, errors.CodeOutputWrite, "cannot write storage file").WithPath(s.path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapIO(err, errors.CodeOutputWrite, "cannot write storage file").WithPath(s.path)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapIO(err, errors.CodeOutputWrite, "cannot replace storage file").WithPath(s.path)
	}

	return nil
}

// GetSize returns the number of stored entries.
func (s *Storage) GetSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.entries))
}

// GetHits returns how many Get calls found a valid entry.
func (s *Storage) GetHits() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

// GetMisses returns how many Get calls found nothing valid.
func (s *Storage) GetMisses() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.misses
}

// GetHitRate returns the Get hit rate as a percentage
func (s *Storage) GetHitRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.hits + s.misses
	if total == 0 {
		return 0.0
	}
	return float64(s.hits) / float64(total) * 100.0
}

// GetEvictions returns how many stale entries were removed.
func (s *Storage) GetEvictions() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictions
}
