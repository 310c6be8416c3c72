package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/labdash/internal/logger"
)

// DefaultPollInterval is the pause between two acquisitions.
const DefaultPollInterval = 5 * time.Second

// Snapshot is what a Receiver publishes after each cycle. Its slices are
// private copies; consumers may keep them but must not modify them.
type Snapshot struct {
	Source    string
	Kind      Kind
	Time      time.Time
	Status    Status
	Series    [][]Sample // one per channel, oldest first
	Processes []Process  // host sources only
}

// Empty reports whether the snapshot carries no samples at all.
func (s Snapshot) Empty() bool {
	for _, series := range s.Series {
		if len(series) > 0 {
			return false
		}
	}
	return true
}

// ReceiverConfig holds everything a Receiver needs.
type ReceiverConfig struct {
	Name      string
	Kind      Kind
	Source    SampleSource
	Buffers   []*RollingBuffer // one per channel
	Publisher *Publisher[Snapshot]
	Interval  time.Duration
	Logger    logger.Logger

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Receiver runs the acquire/append/publish/sleep cycle for one source.
// Source failures become sentinel samples; they never end the loop.
type Receiver struct {
	name      string
	kind      Kind
	source    SampleSource
	buffers   []*RollingBuffer
	pub       *Publisher[Snapshot]
	interval  time.Duration
	log       logger.Logger
	now       func() time.Time
	processes []Process
}

// NewReceiver creates a receiver. It panics if cfg has no source, buffers
// or publisher, which is a programming error.
func NewReceiver(cfg ReceiverConfig) *Receiver {
	if cfg.Source == nil || len(cfg.Buffers) == 0 || cfg.Publisher == nil {
		panic("telemetry: receiver needs a source, buffers and a publisher")
	}
	if cfg.Interval < 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Noop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Receiver{
		name:     cfg.Name,
		kind:     cfg.Kind,
		source:   cfg.Source,
		buffers:  cfg.Buffers,
		pub:      cfg.Publisher,
		interval: cfg.Interval,
		log:      cfg.Logger,
		now:      cfg.Now,
	}
}

// Run loops until ctx is cancelled. It always returns nil; the error result
// lets it run under an errgroup.
func (r *Receiver) Run(ctx context.Context) error {
	r.log.Debug("%s: receiver started (interval %s)", r.name, r.interval)
	defer r.log.Debug("%s: receiver stopped", r.name)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := r.Step(ctx); err != nil {
			return nil
		}
		if !sleepCtx(ctx, r.interval) {
			return nil
		}
	}
}

// Step performs one acquisition, appends one sample per channel and
// publishes a snapshot. It returns ctx's error, without recording
// anything, if ctx ended during the acquisition.
func (r *Receiver) Step(ctx context.Context) error {
	reading, err := r.acquire(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err == nil && len(reading.Pairs) < len(r.buffers) {
		err = fmt.Errorf("%w: got %d readings for %d channels", ErrDecode, len(reading.Pairs), len(r.buffers))
	}

	at := r.now()
	status := StatusFor(err)
	for i, buf := range r.buffers {
		if status == StatusValid {
			buf.Append(NewSample(at, reading.Pairs[i]))
		} else {
			buf.Append(SentinelSample(at, status))
		}
	}

	switch status {
	case StatusValid:
		if r.kind == KindHost {
			r.processes = reading.Processes
		}
	case StatusTimeout:
		r.log.Debug("%s: no reading within deadline", r.name)
	default:
		r.log.Debug("%s: unusable reading: %v", r.name, err)
	}

	r.pub.RequestUpdate(r.snapshot(at, status))
	return nil
}

// acquire calls the source and turns a panic into a decode error.
func (r *Receiver) acquire(ctx context.Context) (reading Reading, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: source panicked: %v", ErrDecode, p)
		}
	}()
	return r.source.Acquire(ctx)
}

func (r *Receiver) snapshot(at time.Time, status Status) Snapshot {
	series := make([][]Sample, len(r.buffers))
	for i, buf := range r.buffers {
		series[i] = buf.Snapshot()
	}

	var procs []Process
	if len(r.processes) > 0 {
		procs = make([]Process, len(r.processes))
		copy(procs, r.processes)
	}

	return Snapshot{
		Source:    r.name,
		Kind:      r.kind,
		Time:      at,
		Status:    status,
		Series:    series,
		Processes: procs,
	}
}

// sleepCtx waits for d or until ctx ends. It reports whether the full wait
// elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
