package telemetry

import (
	"fmt"
	"sync"
	"time"

	lderrors "github.com/rileyhilliard/labdash/internal/errors"
	"github.com/rileyhilliard/labdash/internal/logger"
)

// DefaultRenderInterval is the minimum time between two rebuilds of an artifact.
const DefaultRenderInterval = 5 * time.Second

// ArtifactState tracks where an artifact is in its rebuild cycle.
type ArtifactState uint8

const (
	// ArtifactEmpty means nothing has been rendered yet.
	ArtifactEmpty ArtifactState = iota
	// ArtifactPending means a render is in progress.
	ArtifactPending
	// ArtifactReady means Surface holds a rendered result.
	ArtifactReady
)

func (s ArtifactState) String() string {
	switch s {
	case ArtifactEmpty:
		return "empty"
	case ArtifactPending:
		return "pending"
	case ArtifactReady:
		return "ready"
	default:
		return "unknown"
	}
}

// RenderFunc turns a snapshot into a drawable artifact.
type RenderFunc[A any] func(Snapshot) (A, error)

// Artifact is one rendered view of one source, rebuilt by a Scheduler.
type Artifact[A any] struct {
	name   string
	pub    *Publisher[Snapshot]
	render RenderFunc[A]

	// Touched only by Scheduler.Frame.
	lastAttempt time.Time
	attempted   bool

	mu         sync.RWMutex
	state      ArtifactState
	surface    A
	renderedAt time.Time
	renders    int
	err        error
}

// Name returns the artifact's name.
func (a *Artifact[A]) Name() string {
	return a.name
}

// Surface returns the latest rendered result. ok is false until the first
// successful render.
func (a *Artifact[A]) Surface() (surface A, ok bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.renders == 0 {
		return surface, false
	}
	return a.surface, true
}

// State returns the artifact's current state.
func (a *Artifact[A]) State() ArtifactState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Renders returns how many times the artifact was successfully rebuilt.
func (a *Artifact[A]) Renders() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.renders
}

// RenderedAt returns when the current surface was produced.
func (a *Artifact[A]) RenderedAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.renderedAt
}

// Err returns the RENDER-coded error of the last failed rebuild, or nil once
// a rebuild succeeds again.
func (a *Artifact[A]) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

// Scheduler rebuilds artifacts from published snapshots, at most once per
// interval each. Frame must only be called from the render loop.
type Scheduler[A any] struct {
	interval  time.Duration
	log       logger.Logger
	artifacts []*Artifact[A]
}

// NewScheduler creates a scheduler with the given per-artifact interval.
func NewScheduler[A any](interval time.Duration, log logger.Logger) *Scheduler[A] {
	if interval < 0 {
		interval = DefaultRenderInterval
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Scheduler[A]{interval: interval, log: log}
}

// Register adds an artifact fed by pub and built by render.
func (s *Scheduler[A]) Register(name string, pub *Publisher[Snapshot], render RenderFunc[A]) *Artifact[A] {
	a := &Artifact[A]{name: name, pub: pub, render: render}
	s.artifacts = append(s.artifacts, a)
	return a
}

// Artifacts returns the registered artifacts in registration order.
func (s *Scheduler[A]) Artifacts() []*Artifact[A] {
	return s.artifacts
}

// Frame runs one scheduling pass and returns how many artifacts were rebuilt.
// An artifact is due when it was never attempted or its last attempt is at
// least one interval old. A due artifact restarts its interval whether or
// not fresh data is waiting.
func (s *Scheduler[A]) Frame(now time.Time) int {
	rebuilt := 0
	for _, a := range s.artifacts {
		if a.attempted && now.Sub(a.lastAttempt) < s.interval {
			continue
		}
		a.attempted = true
		a.lastAttempt = now

		snap, ok := a.pub.ConsumeIfStale()
		if !ok || snap.Empty() {
			continue
		}
		if s.rebuild(a, snap, now) {
			rebuilt++
		}
	}
	return rebuilt
}

// Refresh rebuilds every artifact from its publisher's latest snapshot,
// ignoring the interval and the unconsumed mark. The render loop calls it
// when the drawing area changes size.
func (s *Scheduler[A]) Refresh(now time.Time) int {
	rebuilt := 0
	for _, a := range s.artifacts {
		snap, ok := a.pub.Latest()
		if !ok || snap.Empty() {
			continue
		}
		if s.rebuild(a, snap, now) {
			rebuilt++
		}
	}
	return rebuilt
}

func (s *Scheduler[A]) rebuild(a *Artifact[A], snap Snapshot, now time.Time) bool {
	a.mu.Lock()
	prev := a.state
	a.state = ArtifactPending
	a.mu.Unlock()

	surface, err := safeRender(a.render, snap)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state = prev
		a.err = lderrors.WrapWithCode(err, lderrors.ErrRender,
			"Cannot render "+a.name,
			"The previous view stays on screen until a snapshot renders")
		s.log.Warn("%s: render failed, keeping previous view: %v", a.name, err)
		return false
	}
	a.err = nil
	a.surface = surface
	a.renderedAt = now
	a.renders++
	a.state = ArtifactReady
	return true
}

func safeRender[A any](render RenderFunc[A], snap Snapshot) (surface A, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("render panicked: %v", p)
		}
	}()
	return render(snap)
}
