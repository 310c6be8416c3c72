package telemetry

import "time"

// Kind is the family of metrics a source reports.
type Kind int

const (
	// KindGPU samples are (utilization %, temperature °C).
	KindGPU Kind = iota
	// KindHost samples are (CPU %, RAM %).
	KindHost
)

// String returns a short label for the kind.
func (k Kind) String() string {
	switch k {
	case KindGPU:
		return "gpu"
	case KindHost:
		return "host"
	default:
		return "unknown"
	}
}

// Labels returns the names of the primary and secondary readings.
func (k Kind) Labels() (primary, secondary string) {
	if k == KindHost {
		return "CPU", "RAM"
	}
	return "GPU Usage", "GPU Temperature"
}

// Limits returns the largest valid primary and secondary readings.
func (k Kind) Limits() (primary, secondary float64) {
	if k == KindHost {
		return 100, 100
	}
	return 100, MaxTemperature
}

// MaxTemperature is the highest GPU temperature accepted as a real reading.
const MaxTemperature = 110.0

// Status tags a Sample as a real reading or one of the sentinel kinds.
type Status uint8

const (
	// StatusValid means Primary and Secondary hold a real reading.
	StatusValid Status = iota
	// StatusTimeout means no reading arrived before the wait expired.
	StatusTimeout
	// StatusDecodeError means a reading arrived but could not be used.
	StatusDecodeError
)

// String returns a human-readable status label.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "ok"
	case StatusTimeout:
		return "timeout"
	case StatusDecodeError:
		return "decode error"
	default:
		return "unknown"
	}
}

// Plot values for sentinel samples. Charts draw them as negative excursions
// below the zero line so gaps stay visible.
const (
	TimeoutPlotValue     = -1.0
	DecodeErrorPlotValue = -10.0
)

// Sample is one timestamped pair of readings for one channel.
type Sample struct {
	Time      time.Time
	Primary   float64
	Secondary float64
	Status    Status
}

// Pair is a raw (primary, secondary) reading as produced by a source.
type Pair struct {
	Primary   float64
	Secondary float64
}

// NewSample builds a valid sample.
func NewSample(at time.Time, p Pair) Sample {
	return Sample{Time: at, Primary: p.Primary, Secondary: p.Secondary, Status: StatusValid}
}

// SentinelSample builds a sample that records a failed acquisition.
func SentinelSample(at time.Time, status Status) Sample {
	return Sample{Time: at, Status: status}
}

// Valid reports whether the sample carries a real reading.
func (s Sample) Valid() bool {
	return s.Status == StatusValid
}

// PlotPrimary returns the primary reading, or the sentinel plot value.
func (s Sample) PlotPrimary() float64 {
	return s.plot(s.Primary)
}

// PlotSecondary returns the secondary reading, or the sentinel plot value.
func (s Sample) PlotSecondary() float64 {
	return s.plot(s.Secondary)
}

func (s Sample) plot(v float64) float64 {
	switch s.Status {
	case StatusTimeout:
		return TimeoutPlotValue
	case StatusDecodeError:
		return DecodeErrorPlotValue
	default:
		return v
	}
}

// Process is one row of a host's process table.
type Process struct {
	User          string  `json:"username"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
}

// Reading is what a source returns for one acquisition: one Pair per
// channel and, for host sources, the current process table.
type Reading struct {
	Pairs     []Pair
	Processes []Process
}
