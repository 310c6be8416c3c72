package telemetry

import "sync"

// Publisher hands the latest value from a producer to a single consumer.
// Updates that arrive before the consumer looks collapse into one: only the
// newest value survives, and the consumer sees it once.
type Publisher[T any] struct {
	mu     sync.Mutex
	latest T
	dirty  bool
	set    bool
}

// NewPublisher creates an empty publisher.
func NewPublisher[T any]() *Publisher[T] {
	return &Publisher[T]{}
}

// RequestUpdate stores v as the latest value and marks it unconsumed.
// It never blocks on the consumer.
func (p *Publisher[T]) RequestUpdate(v T) {
	p.mu.Lock()
	p.latest = v
	p.dirty = true
	p.set = true
	p.mu.Unlock()
}

// ConsumeIfStale returns the latest value and clears the unconsumed mark.
// ok is false when nothing new arrived since the last consume.
func (p *Publisher[T]) ConsumeIfStale() (v T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.dirty {
		return v, false
	}
	p.dirty = false
	return p.latest, true
}

// Latest returns the most recent value without consuming it. ok is false
// until the first RequestUpdate.
func (p *Publisher[T]) Latest() (v T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.set
}

// Pending reports whether an unconsumed update is waiting.
func (p *Publisher[T]) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}
