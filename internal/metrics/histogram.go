// Package metrics keeps in-process latency distributions for the tracker.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

const defaultSize = 1024

// Histogram holds the most recent duration samples in a fixed ring and
// reports percentiles over them.
type Histogram struct {
	mu      sync.RWMutex
	samples []float64 // milliseconds
	next    int
	full    bool
	total   int64
}

// Summary is a point-in-time view of a Histogram, in milliseconds.
type Summary struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"meanMs"`
	P50   float64 `json:"p50Ms"`
	P95   float64 `json:"p95Ms"`
	Max   float64 `json:"maxMs"`
}

// NewHistogram creates a histogram that keeps the last size samples.
func NewHistogram(size int) *Histogram {
	if size <= 0 {
		size = defaultSize
	}
	return &Histogram{samples: make([]float64, size)}
}

// Record adds a sample, overwriting the oldest once the ring is full.
func (h *Histogram) Record(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples[h.next] = float64(d.Microseconds()) / 1000.0
	h.next++
	if h.next == len(h.samples) {
		h.next = 0
		h.full = true
	}
	h.total++
}

// Time records the time elapsed since start.
func (h *Histogram) Time(start time.Time) {
	h.Record(time.Since(start))
}

func (h *Histogram) window() []float64 {
	if h.full {
		return h.samples
	}
	return h.samples[:h.next]
}

// Summary computes the distribution over the retained samples. Count is the
// number of samples ever recorded.
func (h *Histogram) Summary() Summary {
	h.mu.RLock()
	sorted := append([]float64(nil), h.window()...)
	total := h.total
	h.mu.RUnlock()

	s := Summary{Count: total}
	if len(sorted) == 0 {
		return s
	}
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	s.Mean = sum / float64(len(sorted))
	s.P50 = percentile(sorted, 50)
	s.P95 = percentile(sorted, 95)
	s.Max = sorted[len(sorted)-1]
	return s
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []float64, p float64) float64 {
	idx := (p / 100.0) * float64(len(sorted)-1)
	lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
