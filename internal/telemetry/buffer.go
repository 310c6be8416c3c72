package telemetry

import "sync"

// DefaultCapacity is the number of samples kept per series when none is given.
const DefaultCapacity = 360

// RollingBuffer is a fixed-capacity FIFO of samples backed by a ring.
// Appending to a full buffer evicts the oldest sample. One receiver writes,
// any number of readers copy out; every access holds the buffer's own lock.
type RollingBuffer struct {
	mu    sync.RWMutex
	data  []Sample
	head  int // next write position
	count int
}

// NewRollingBuffer creates an empty buffer with the given capacity.
func NewRollingBuffer(capacity int) *RollingBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RollingBuffer{
		data: make([]Sample, capacity),
	}
}

// NewBaselineBuffer creates a full buffer of neutral zero samples, so the
// first renders show a flat baseline instead of an empty plot.
func NewBaselineBuffer(capacity int) *RollingBuffer {
	b := NewRollingBuffer(capacity)
	b.count = len(b.data)
	return b
}

// Append adds a sample, evicting the oldest one if the buffer is full.
func (b *RollingBuffer) Append(s Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[b.head] = s
	b.head = (b.head + 1) % len(b.data)
	if b.count < len(b.data) {
		b.count++
	}
}

// Snapshot returns a copy of the contents, oldest first.
func (b *RollingBuffer) Snapshot() []Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastLocked(b.count)
}

// Last returns a copy of the newest n samples, oldest first.
// Returns fewer if the buffer holds fewer.
func (b *RollingBuffer) Last(n int) []Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastLocked(n)
}

// Newest returns the most recent sample, if any.
func (b *RollingBuffer) Newest() (Sample, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		return Sample{}, false
	}
	return b.data[(b.head-1+len(b.data))%len(b.data)], true
}

// Len returns the number of samples held.
func (b *RollingBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the fixed capacity.
func (b *RollingBuffer) Cap() int {
	return len(b.data)
}

// lastLocked copies the newest n samples. Must be called with b.mu held.
func (b *RollingBuffer) lastLocked(n int) []Sample {
	if n <= 0 || b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	size := len(b.data)
	out := make([]Sample, n)
	start := (b.head - n + size) % size
	for i := 0; i < n; i++ {
		out[i] = b.data[(start+i)%size]
	}
	return out
}
