package build

import (
	"sync"
	"time"

	"github.com/conneroisu/assetloader/internal/interfaces"
)

// BuildMetrics counts generations and how many outputs were rewritten.
type BuildMetrics struct {
	Generations   int64
	Rebuilds      int64
	Skips         int64
	Failures      int64
	LastDuration  time.Duration
	TotalDuration time.Duration
	mutex         sync.RWMutex
}

var _ interfaces.BuildMetrics = (*BuildMetrics)(nil)

// NewBuildMetrics creates a new build metrics tracker
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordRebuild counts one output written to disk.
func (bm *BuildMetrics) RecordRebuild() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()
	bm.Rebuilds++
}

// RecordSkip counts one output found up to date.
func (bm *BuildMetrics) RecordSkip() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()
	bm.Skips++
}

// RecordDuration records a completed generation.
func (bm *BuildMetrics) RecordDuration(d time.Duration) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.Generations++
	bm.LastDuration = d
	bm.TotalDuration += d
}

// RecordFailure records a generation that returned an error.
func (bm *BuildMetrics) RecordFailure(d time.Duration) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.Generations++
	bm.Failures++
	bm.LastDuration = d
	bm.TotalDuration += d
}

// GetSnapshot returns a snapshot of current metrics
func (bm *BuildMetrics) GetSnapshot() BuildMetrics {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()
	// Return a copy without the mutex to avoid lock copying issues
	return BuildMetrics{
		Generations:   bm.Generations,
		Rebuilds:      bm.Rebuilds,
		Skips:         bm.Skips,
		Failures:      bm.Failures,
		LastDuration:  bm.LastDuration,
		TotalDuration: bm.TotalDuration,
	}
}

// GetGenerations returns how many times Generate ran.
func (bm *BuildMetrics) GetGenerations() int64 {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()
	return bm.Generations
}

// GetRebuilds returns how many outputs were written.
func (bm *BuildMetrics) GetRebuilds() int64 {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()
	return bm.Rebuilds
}

// GetSkips returns how many outputs were left untouched.
func (bm *BuildMetrics) GetSkips() int64 {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()
	return bm.Skips
}

// GetLastDuration returns the duration of the latest generation.
func (bm *BuildMetrics) GetLastDuration() time.Duration {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()
	return bm.LastDuration
}

// GetSkipRate returns the share of up-to-date outputs as a percentage
func (bm *BuildMetrics) GetSkipRate() float64 {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	total := bm.Rebuilds + bm.Skips
	if total == 0 {
		return 0.0
	}

	return float64(bm.Skips) / float64(total) * 100.0
}

// Reset resets all metrics
func (bm *BuildMetrics) Reset() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.Generations = 0
	bm.Rebuilds = 0
	bm.Skips = 0
	bm.Failures = 0
	bm.LastDuration = 0
	bm.TotalDuration = 0
}
