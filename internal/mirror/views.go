package mirror

import (
	"time"

	"github.com/rileyhilliard/labdash/internal/telemetry"
)

// StatusWaiting is reported for sources that have not published yet.
const StatusWaiting = "waiting"

// SourceView summarizes one monitored source.
type SourceView struct {
	Name      string     `json:"name"`
	Panel     string     `json:"panel"`
	Kind      string     `json:"kind"`
	Channels  int        `json:"channels"`
	Status    string     `json:"status"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// SampleView is one sample as the mirror serializes it. Sentinel samples
// carry their plot value so clients can draw them the same way the
// dashboard does.
type SampleView struct {
	Time      time.Time `json:"t"`
	Primary   float64   `json:"primary"`
	Secondary float64   `json:"secondary"`
	Status    string    `json:"status"`
}

// SeriesView is a source with its full rolling history.
type SeriesView struct {
	SourceView
	Labels    [2]string           `json:"labels"`
	Series    [][]SampleView      `json:"series"`
	Processes []telemetry.Process `json:"processes,omitempty"`
}

func sourceView(mon *telemetry.Monitor) SourceView {
	v := SourceView{
		Name:     mon.Name,
		Panel:    mon.Panel,
		Kind:     mon.Kind.String(),
		Channels: mon.Channels,
		Status:   StatusWaiting,
	}
	if snap, ok := mon.Publisher.Latest(); ok {
		at := snap.Time
		v.Status = snap.Status.String()
		v.UpdatedAt = &at
	}
	return v
}

func seriesView(mon *telemetry.Monitor) SeriesView {
	primary, secondary := mon.Kind.Labels()
	v := SeriesView{
		SourceView: sourceView(mon),
		Labels:     [2]string{primary, secondary},
	}

	for _, samples := range mon.Series() {
		out := make([]SampleView, len(samples))
		for i, s := range samples {
			out[i] = SampleView{
				Time:      s.Time,
				Primary:   s.PlotPrimary(),
				Secondary: s.PlotSecondary(),
				Status:    s.Status.String(),
			}
		}
		v.Series = append(v.Series, out)
	}

	if snap, ok := mon.Publisher.Latest(); ok {
		v.Processes = snap.Processes
	}
	return v
}
