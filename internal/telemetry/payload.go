package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
)

// MaxDatagramSize is the largest telemetry datagram accepted.
const MaxDatagramSize = 8192

// gpuReading is one accelerator in a GPU payload. Pointers distinguish a
// missing field from a zero reading.
type gpuReading struct {
	Usage *float64 `json:"gpu_usage"`
	Temp  *float64 `json:"gpu_temp"`
}

// wirePayload is the union of the GPU and host datagram schemas.
type wirePayload struct {
	Usage *float64     `json:"gpu_usage,omitempty"`
	Temp  *float64     `json:"gpu_temp,omitempty"`
	GPUs  []gpuReading `json:"gpus,omitempty"`

	CPU       *float64  `json:"cpu_percent,omitempty"`
	RAM       *float64  `json:"ram_percent,omitempty"`
	Processes []Process `json:"processes,omitempty"`
}

// DecodePayload parses one datagram for a source of the given kind carrying
// the given number of channels. Every failure wraps ErrDecode.
func DecodePayload(data []byte, kind Kind, channels int) (Reading, error) {
	if channels <= 0 {
		channels = 1
	}

	var p wirePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	switch kind {
	case KindGPU:
		return decodeGPU(p, channels)
	case KindHost:
		return decodeHost(p)
	default:
		return Reading{}, fmt.Errorf("%w: unknown source kind %d", ErrDecode, kind)
	}
}

func decodeGPU(p wirePayload, channels int) (Reading, error) {
	entries := p.GPUs
	if len(entries) == 0 {
		entries = []gpuReading{{Usage: p.Usage, Temp: p.Temp}}
	}
	if len(entries) < channels {
		return Reading{}, fmt.Errorf("%w: payload has %d gpus, expected %d", ErrDecode, len(entries), channels)
	}

	pairs := make([]Pair, channels)
	for i := 0; i < channels; i++ {
		e := entries[i]
		if e.Usage == nil || e.Temp == nil {
			return Reading{}, fmt.Errorf("%w: gpu %d is missing gpu_usage or gpu_temp", ErrDecode, i)
		}
		pair := Pair{Primary: *e.Usage, Secondary: *e.Temp}
		if err := checkRange(KindGPU, pair); err != nil {
			return Reading{}, fmt.Errorf("%w: gpu %d: %v", ErrDecode, i, err)
		}
		pairs[i] = pair
	}
	return Reading{Pairs: pairs}, nil
}

func decodeHost(p wirePayload) (Reading, error) {
	if p.CPU == nil || p.RAM == nil {
		return Reading{}, fmt.Errorf("%w: missing cpu_percent or ram_percent", ErrDecode)
	}
	pair := Pair{Primary: *p.CPU, Secondary: *p.RAM}
	if err := checkRange(KindHost, pair); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Reading{Pairs: []Pair{pair}, Processes: p.Processes}, nil
}

// checkRange rejects readings outside the kind's valid domain.
func checkRange(kind Kind, p Pair) error {
	maxPrimary, maxSecondary := kind.Limits()
	primary, secondary := kind.Labels()
	if !inRange(p.Primary, maxPrimary) {
		return fmt.Errorf("%s %v outside [0, %v]", primary, p.Primary, maxPrimary)
	}
	if !inRange(p.Secondary, maxSecondary) {
		return fmt.Errorf("%s %v outside [0, %v]", secondary, p.Secondary, maxSecondary)
	}
	return nil
}

func inRange(v, max float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= max
}

// EncodePayload serializes a Reading in the wire format for the given kind.
// A single GPU uses the flat gpu_usage/gpu_temp form; several use "gpus".
func EncodePayload(kind Kind, r Reading) ([]byte, error) {
	if len(r.Pairs) == 0 {
		return nil, fmt.Errorf("telemetry: nothing to encode")
	}

	var p wirePayload
	switch kind {
	case KindGPU:
		if len(r.Pairs) == 1 {
			p.Usage = float64Ptr(r.Pairs[0].Primary)
			p.Temp = float64Ptr(r.Pairs[0].Secondary)
			break
		}
		p.GPUs = make([]gpuReading, len(r.Pairs))
		for i, pair := range r.Pairs {
			p.GPUs[i] = gpuReading{Usage: float64Ptr(pair.Primary), Temp: float64Ptr(pair.Secondary)}
		}
	case KindHost:
		p.CPU = float64Ptr(r.Pairs[0].Primary)
		p.RAM = float64Ptr(r.Pairs[0].Secondary)
		p.Processes = r.Processes
	default:
		return nil, fmt.Errorf("telemetry: unknown source kind %d", kind)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDatagramSize {
		return nil, fmt.Errorf("telemetry: payload is %d bytes, limit is %d", len(data), MaxDatagramSize)
	}
	return data, nil
}

func float64Ptr(v float64) *float64 {
	return &v
}
