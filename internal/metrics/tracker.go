// Package metrics tracks how long sweep points take, projects the remaining
// time of a sweep, and summarizes point durations with an HDR histogram.
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// TrackerConfig bounds the duration histogram.
type TrackerConfig struct {
	// HistogramMin is the minimum recordable value in milliseconds (default: 1)
	HistogramMin int64

	// HistogramMax is the maximum recordable value in milliseconds (default: 48 hours)
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures (default: 3)
	HistogramSigFigs int
}

// DefaultTrackerConfig returns the default configuration.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		HistogramMin:     1,
		HistogramMax:     int64(48 * time.Hour / time.Millisecond),
		HistogramSigFigs: 3,
	}
}

// Tracker records the duration and outcome of every executed point.
//
// Tracker is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	hist      *hdrhistogram.Histogram
	succeeded int64
	failed    int64
	start     time.Time
	config    TrackerConfig
}

// NewTracker creates a tracker with default configuration.
func NewTracker() *Tracker {
	return NewTrackerWithConfig(DefaultTrackerConfig())
}

// NewTrackerWithConfig creates a tracker with custom configuration.
func NewTrackerWithConfig(config TrackerConfig) *Tracker {
	return &Tracker{
		hist:   hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		config: config,
	}
}

// Start marks the beginning of the sweep. Only the first call counts.
func (t *Tracker) Start(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.start.IsZero() {
		t.start = now
	}
}

// Observe records one point.
func (t *Tracker) Observe(d time.Duration, success bool) {
	ms := d.Milliseconds()
	if ms < t.config.HistogramMin {
		ms = t.config.HistogramMin
	}
	if ms > t.config.HistogramMax {
		ms = t.config.HistogramMax
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// RecordValue only fails outside the range clamped above.
	_ = t.hist.RecordValue(ms)
	if success {
		t.succeeded++
	} else {
		t.failed++
	}
}

// Elapsed returns the wall time since Start.
func (t *Tracker) Elapsed(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.start.IsZero() {
		return 0
	}
	return now.Sub(t.start)
}

// Remaining projects the time needed for left more points when completed
// points took elapsed wall time in total. Wall time includes build and
// settle overhead, not just the recorded execution.
func Remaining(elapsed time.Duration, completed, left int) time.Duration {
	if completed <= 0 || left <= 0 {
		return 0
	}
	return time.Duration(float64(elapsed) / float64(completed) * float64(left))
}

// Snapshot returns a point-in-time summary.
func (t *Tracker) Snapshot(now time.Time) *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &Snapshot{
		Succeeded: t.succeeded,
		Failed:    t.failed,
		Durations: DurationStats{
			Count: t.hist.TotalCount(),
			Min:   time.Duration(t.hist.Min()) * time.Millisecond,
			Max:   time.Duration(t.hist.Max()) * time.Millisecond,
			Mean:  time.Duration(t.hist.Mean() * float64(time.Millisecond)),
			P50:   time.Duration(t.hist.ValueAtQuantile(50)) * time.Millisecond,
			P95:   time.Duration(t.hist.ValueAtQuantile(95)) * time.Millisecond,
		},
	}
	if !t.start.IsZero() {
		s.Elapsed = now.Sub(t.start)
	}
	return s
}

// Snapshot contains a point-in-time view of a sweep.
type Snapshot struct {
	Succeeded int64         `json:"succeeded"`
	Failed    int64         `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
	Durations DurationStats `json:"durations"`
}

// Total returns the number of recorded points.
func (s *Snapshot) Total() int64 {
	return s.Succeeded + s.Failed
}

// DurationStats contains point duration statistics.
type DurationStats struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
}
