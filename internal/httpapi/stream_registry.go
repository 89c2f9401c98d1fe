package httpapi

import (
	"sync"
	"sync/atomic"
)

// StreamRegistry tracks live event-stream connections and supports graceful
// draining. While draining, new sessions and new streams are rejected and
// in-flight streams are given time to finish before the process exits.
//
// The mu mutex makes the draining check and wg.Add atomic in Add(), so a
// stream can never slip in between StartDraining and Wait.
type StreamRegistry struct {
	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
	count    atomic.Int64
}

// NewStreamRegistry creates a new StreamRegistry.
func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{}
}

// Add registers a new live stream. Returns false if the registry is draining,
// meaning the connection should be refused.
func (sr *StreamRegistry) Add() bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if sr.draining {
		return false
	}
	sr.wg.Add(1)
	sr.count.Add(1)
	return true
}

// Done marks a stream as closed. Must be called exactly once per successful Add.
func (sr *StreamRegistry) Done() {
	sr.count.Add(-1)
	sr.wg.Done()
}

// StartDraining sets the draining flag so that future Add calls return false.
func (sr *StreamRegistry) StartDraining() {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.draining = true
}

// IsDraining reports whether the registry is in draining mode.
func (sr *StreamRegistry) IsDraining() bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.draining
}

// ActiveCount returns the number of currently open streams.
func (sr *StreamRegistry) ActiveCount() int64 {
	return sr.count.Load()
}

// Wait blocks until every open stream has closed.
func (sr *StreamRegistry) Wait() {
	sr.wg.Wait()
}
