// Package telemetry merges two server-sent event streams and two polling
// loops into bounded, render-safe buffers for the operator dashboards.
package telemetry

import (
	"github.com/gitpusher/pushkit/internal/models"
)

// Ring is a fixed-capacity FIFO of realtime samples. Appending past
// capacity evicts the oldest sample. It is not safe for concurrent use; all
// mutation happens on the aggregator's event loop.
type Ring struct {
	samples  []models.RealtimeSample
	capacity int
	start    int
	length   int
}

// NewRing creates a ring with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{
		samples:  make([]models.RealtimeSample, capacity),
		capacity: capacity,
	}
}

// Append adds a sample, evicting the oldest when full.
func (r *Ring) Append(sample models.RealtimeSample) {
	idx := (r.start + r.length) % r.capacity
	r.samples[idx] = sample
	if r.length < r.capacity {
		r.length++
		return
	}
	r.start = (r.start + 1) % r.capacity
}

// Len returns the number of buffered samples. Never exceeds capacity.
func (r *Ring) Len() int { return r.length }

// Cap returns the fixed capacity.
func (r *Ring) Cap() int { return r.capacity }

// Snapshot returns the samples oldest-first as a fresh slice safe to hand
// to a view.
func (r *Ring) Snapshot() []models.RealtimeSample {
	out := make([]models.RealtimeSample, r.length)
	for i := 0; i < r.length; i++ {
		out[i] = r.samples[(r.start+i)%r.capacity]
	}
	return out
}
