// Package observability records request latency per response outcome.
package observability

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// BucketBounds are the upper bounds of the latency histogram buckets. The
// last bucket is unbounded.
var BucketBounds = [...]time.Duration{
	100 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

const numBuckets = len(BucketBounds) + 1

type outcomeMetrics struct {
	count   uint64
	errors  uint64
	total   time.Duration
	min     time.Duration
	max     time.Duration
	buckets [numBuckets]uint64
}

// Monitor aggregates request timings by outcome label such as "200 OK".
type Monitor struct {
	mu       sync.Mutex
	outcomes map[string]*outcomeMetrics
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{outcomes: make(map[string]*outcomeMetrics)}
}

// RecordRequest records one request of the given outcome.
func (m *Monitor) RecordRequest(outcome string, d time.Duration, isError bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.outcomes[outcome]
	if !ok {
		om = &outcomeMetrics{}
		m.outcomes[outcome] = om
	}

	om.count++
	if isError {
		om.errors++
	}
	om.total += d
	if om.count == 1 || d < om.min {
		om.min = d
	}
	if d > om.max {
		om.max = d
	}
	om.buckets[bucketIndex(d)]++
}

func bucketIndex(d time.Duration) int {
	for i, bound := range BucketBounds {
		if d < bound {
			return i
		}
	}
	return numBuckets - 1
}

// Latency is a snapshot of one outcome's timings.
type Latency struct {
	Outcome string        `json:"outcome"`
	Count   uint64        `json:"count"`
	Errors  uint64        `json:"errors"`
	Min     time.Duration `json:"min_ns"`
	Max     time.Duration `json:"max_ns"`
	Mean    time.Duration `json:"mean_ns"`
	Buckets []uint64      `json:"buckets"`
}

// Snapshot returns per-outcome timings sorted by outcome.
func (m *Monitor) Snapshot() []Latency {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Latency, 0, len(m.outcomes))
	for name, om := range m.outcomes {
		l := Latency{
			Outcome: name,
			Count:   om.count,
			Errors:  om.errors,
			Min:     om.min,
			Max:     om.max,
			Buckets: append([]uint64(nil), om.buckets[:]...),
		}
		if om.count > 0 {
			l.Mean = om.total / time.Duration(om.count)
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Outcome < out[j].Outcome })
	return out
}

// Slow returns a description of every outcome whose mean latency exceeds
// threshold.
func (m *Monitor) Slow(threshold time.Duration) []string {
	var slow []string
	for _, l := range m.Snapshot() {
		if l.Mean > threshold {
			slow = append(slow, fmt.Sprintf("%s: %v mean over %d requests", l.Outcome, l.Mean, l.Count))
		}
	}
	return slow
}

// Reset clears all recorded timings.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.outcomes = make(map[string]*outcomeMetrics)
	m.mu.Unlock()
}
