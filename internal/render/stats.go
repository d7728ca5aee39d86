package render

import (
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Stats accumulates renderer-side counters and periodically logs a
// summary, following the time-gated periodic diagnostic print pattern
// from audio_stats.go, generalized from a C-interop global-counter array
// to ordinary atomic fields owned by the renderer.
type Stats struct {
	BlocksRendered   atomic.Uint64
	SnapshotsApplied atomic.Uint64
	// BlocksWithoutNewSnapshot counts blocks rendered using the previously
	// applied scene because no fresher one had been published yet.
	BlocksWithoutNewSnapshot atomic.Uint64
	lastReport               time.Time
	reportInterval           time.Duration
}

// NewStats builds a Stats that reports at most once per interval.
func NewStats(interval time.Duration) *Stats {
	return &Stats{reportInterval: interval, lastReport: time.Time{}}
}

// MaybeReport logs a summary line if interval has elapsed since the last
// one, using now supplied by the caller so the render path never calls
// time.Now() itself on every sample.
func (s *Stats) MaybeReport(now time.Time, logger *log.Logger) {
	if s.reportInterval <= 0 {
		return
	}
	if s.lastReport.IsZero() {
		s.lastReport = now
		return
	}
	if now.Sub(s.lastReport) < s.reportInterval {
		return
	}
	logger.Debug("render stats",
		"blocks", s.BlocksRendered.Load(),
		"snapshots_applied", s.SnapshotsApplied.Load(),
		"blocks_without_new_snapshot", s.BlocksWithoutNewSnapshot.Load(),
	)
	s.lastReport = now
}
