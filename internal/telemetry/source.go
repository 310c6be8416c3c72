package telemetry

import (
	"context"
	"errors"
)

// Acquisition errors. Receivers turn them into sentinel samples.
var (
	// ErrTimeout means no reading arrived before the wait expired.
	ErrTimeout = errors.New("telemetry: no reading before deadline")
	// ErrDecode means a reading arrived but did not match the schema.
	ErrDecode = errors.New("telemetry: malformed reading")
)

// SampleSource produces one Reading per call. Implementations block for at
// most their own bounded wait and report failure through the returned error.
type SampleSource interface {
	Acquire(ctx context.Context) (Reading, error)
}

// SourceFunc adapts a plain function to SampleSource.
type SourceFunc func(ctx context.Context) (Reading, error)

// Acquire calls f.
func (f SourceFunc) Acquire(ctx context.Context) (Reading, error) {
	return f(ctx)
}

// StatusFor maps an acquisition error to the sentinel status recorded for it.
func StatusFor(err error) Status {
	switch {
	case err == nil:
		return StatusValid
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	default:
		return StatusDecodeError
	}
}
