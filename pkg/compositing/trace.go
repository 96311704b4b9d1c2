package compositing

import (
	"sync"
	"time"
)

const (
	updateTraceSamplesDefault  = 120
	defaultSlowUpdateThreshold = 4 * time.Millisecond
)

// UpdatePhaseTimings captures time spent in each update phase (ms).
type UpdatePhaseTimings struct {
	RequirementsMs float64 `json:"requirementsMs"`
	RebuildMs      float64 `json:"rebuildMs"`
	GeometryMs     float64 `json:"geometryMs"`
}

// UpdateCounts captures per-update workload indicators.
type UpdateCounts struct {
	LayersVisited   int `json:"layersVisited"`
	Composited      int `json:"composited"`
	BackingsCreated int `json:"backingsCreated"`
	BackingsRemoved int `json:"backingsRemoved"`
	Repaints        int `json:"repaints"`
	RequirementRuns int `json:"requirementRuns"`
}

// UpdateSample is a single update trace sample.
type UpdateSample struct {
	Timestamp int64              `json:"ts"`
	Type      string             `json:"type"`
	UpdateMs  float64            `json:"updateMs"`
	Phases    UpdatePhaseTimings `json:"phases"`
	Counts    UpdateCounts       `json:"counts"`
	// HierarchyRebuilt is false when only geometry was refreshed.
	HierarchyRebuilt bool `json:"hierarchyRebuilt"`
	ConsultsOverlap  bool `json:"consultsOverlap"`
}

// UpdateTimeline is a chronological snapshot of the trace buffer.
type UpdateTimeline struct {
	Samples     []UpdateSample `json:"samples"`
	SlowUpdates int            `json:"slowUpdates"`
	ThresholdMs float64        `json:"thresholdMs"`
}

// UpdateTraceBuffer stores recent update samples in a ring buffer.
type UpdateTraceBuffer struct {
	mu        sync.RWMutex
	samples   []UpdateSample
	index     int
	count     int
	slow      int
	threshold time.Duration
}

// NewUpdateTraceBuffer creates a trace buffer. Non-positive arguments
// select the defaults.
func NewUpdateTraceBuffer(capacity int, threshold time.Duration) *UpdateTraceBuffer {
	if capacity <= 0 {
		capacity = updateTraceSamplesDefault
	}
	if threshold <= 0 {
		threshold = defaultSlowUpdateThreshold
	}
	return &UpdateTraceBuffer{
		samples:   make([]UpdateSample, capacity),
		threshold: threshold,
	}
}

// Capacity returns the buffer capacity.
func (b *UpdateTraceBuffer) Capacity() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// SetThreshold updates the slow update threshold.
func (b *UpdateTraceBuffer) SetThreshold(threshold time.Duration) {
	if threshold <= 0 {
		threshold = defaultSlowUpdateThreshold
	}
	b.mu.Lock()
	b.threshold = threshold
	b.mu.Unlock()
}

// Threshold returns the slow update threshold.
func (b *UpdateTraceBuffer) Threshold() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.threshold
}

// Add records a sample and counts it as slow if it exceeded the threshold.
func (b *UpdateTraceBuffer) Add(sample UpdateSample, d time.Duration) {
	b.mu.Lock()
	b.samples[b.index] = sample
	b.index = (b.index + 1) % len(b.samples)
	if b.count < len(b.samples) {
		b.count++
	}
	if d > b.threshold {
		b.slow++
	}
	b.mu.Unlock()
}

// Last returns the most recent sample.
func (b *UpdateTraceBuffer) Last() (UpdateSample, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		return UpdateSample{}, false
	}
	i := (b.index - 1 + len(b.samples)) % len(b.samples)
	return b.samples[i], true
}

// Snapshot returns a chronological copy of samples and stats.
func (b *UpdateTraceBuffer) Snapshot() UpdateTimeline {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return UpdateTimeline{ThresholdMs: durationToMillis(b.threshold)}
	}

	result := make([]UpdateSample, b.count)
	if b.count < len(b.samples) {
		copy(result, b.samples[:b.count])
	} else {
		copy(result, b.samples[b.index:])
		copy(result[len(b.samples)-b.index:], b.samples[:b.index])
	}

	return UpdateTimeline{
		Samples:     result,
		SlowUpdates: b.slow,
		ThresholdMs: durationToMillis(b.threshold),
	}
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
