package telemetry

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// DefaultQueryTimeout bounds one local query.
const DefaultQueryTimeout = 2 * time.Second

// nvidiaSMIArgs selects utilization and temperature, one CSV line per GPU.
var nvidiaSMIArgs = []string{
	"--query-gpu=utilization.gpu,temperature.gpu",
	"--format=csv,noheader,nounits",
}

// CommandRunner runs a command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}

// LocalGPUSource queries this machine's GPUs with nvidia-smi.
type LocalGPUSource struct {
	channels int
	timeout  time.Duration
	run      CommandRunner
}

// NewLocalGPUSource creates a source reporting the first channels GPUs.
func NewLocalGPUSource(channels int, timeout time.Duration) *LocalGPUSource {
	if channels <= 0 {
		channels = 1
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &LocalGPUSource{channels: channels, timeout: timeout, run: execRunner}
}

// WithRunner replaces the command runner. Used by tests and the sender.
func (s *LocalGPUSource) WithRunner(run CommandRunner) *LocalGPUSource {
	s.run = run
	return s
}

// Acquire runs nvidia-smi once. A query that outlives the timeout reports
// ErrTimeout; a failed or unparseable query reports ErrDecode.
func (s *LocalGPUSource) Acquire(ctx context.Context) (Reading, error) {
	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.run(qctx, "nvidia-smi", nvidiaSMIArgs...)
	if err != nil {
		if qctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return Reading{}, ErrTimeout
		}
		return Reading{}, fmt.Errorf("%w: nvidia-smi: %v", ErrDecode, err)
	}

	pairs, err := ParseNvidiaSMI(out)
	if err != nil {
		return Reading{}, err
	}
	if len(pairs) < s.channels {
		return Reading{}, fmt.Errorf("%w: nvidia-smi reported %d gpus, expected %d", ErrDecode, len(pairs), s.channels)
	}
	return Reading{Pairs: pairs[:s.channels]}, nil
}

// ParseNvidiaSMI parses utilization/temperature CSV output, one line per GPU:
//
//	45, 65
//	0, 38
func ParseNvidiaSMI(output string) ([]Pair, error) {
	var pairs []Pair
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: nvidia-smi line %q has %d fields, expected 2", ErrDecode, line, len(fields))
		}

		util, err := parseSMIValue(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: gpu %d utilization: %v", ErrDecode, len(pairs), err)
		}
		temp, err := parseSMIValue(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: gpu %d temperature: %v", ErrDecode, len(pairs), err)
		}

		pair := Pair{Primary: util, Secondary: temp}
		if err := checkRange(KindGPU, pair); err != nil {
			return nil, fmt.Errorf("%w: gpu %d: %v", ErrDecode, len(pairs), err)
		}
		pairs = append(pairs, pair)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: nvidia-smi reported no gpus", ErrDecode)
	}
	return pairs, nil
}

func parseSMIValue(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" || field == "[N/A]" {
		return 0, fmt.Errorf("value not available")
	}
	return strconv.ParseFloat(field, 64)
}

// HostStats is the subset of gopsutil a LocalHostSource needs.
type HostStats interface {
	CPUPercent(ctx context.Context) (float64, error)
	RAMPercent(ctx context.Context) (float64, error)
	Processes(ctx context.Context) ([]Process, error)
}

// LocalHostSource reports this machine's CPU and RAM utilization and its
// busiest processes.
type LocalHostSource struct {
	top     int
	timeout time.Duration
	stats   HostStats
}

// NewLocalHostSource creates a source backed by gopsutil. top caps the
// process table; zero disables it.
func NewLocalHostSource(top int, timeout time.Duration) *LocalHostSource {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &LocalHostSource{top: top, timeout: timeout, stats: newGopsutilStats()}
}

// WithStats replaces the metrics backend. Used by tests.
func (s *LocalHostSource) WithStats(stats HostStats) *LocalHostSource {
	s.stats = stats
	return s
}

// Acquire samples CPU, RAM and, if enabled, the process table.
func (s *LocalHostSource) Acquire(ctx context.Context) (Reading, error) {
	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cpuPct, err := s.stats.CPUPercent(qctx)
	if err != nil {
		return Reading{}, s.classify(qctx, ctx, "cpu", err)
	}
	ramPct, err := s.stats.RAMPercent(qctx)
	if err != nil {
		return Reading{}, s.classify(qctx, ctx, "memory", err)
	}

	pair := Pair{Primary: cpuPct, Secondary: ramPct}
	if err := checkRange(KindHost, pair); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	reading := Reading{Pairs: []Pair{pair}}
	if s.top > 0 {
		procs, err := s.stats.Processes(qctx)
		if err != nil {
			return Reading{}, s.classify(qctx, ctx, "processes", err)
		}
		reading.Processes = TopProcesses(procs, s.top)
	}
	return reading, nil
}

func (s *LocalHostSource) classify(qctx, parent context.Context, what string, err error) error {
	if qctx.Err() == context.DeadlineExceeded && parent.Err() == nil {
		return ErrTimeout
	}
	return fmt.Errorf("%w: %s: %v", ErrDecode, what, err)
}

// TopProcesses returns the n busiest processes by CPU, then memory, then PID.
// The input is not modified.
func TopProcesses(procs []Process, n int) []Process {
	sorted := make([]Process, len(procs))
	copy(sorted, procs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.CPUPercent != b.CPUPercent {
			return a.CPUPercent > b.CPUPercent
		}
		if a.MemoryPercent != b.MemoryPercent {
			return a.MemoryPercent > b.MemoryPercent
		}
		return a.PID < b.PID
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// gopsutilStats reads metrics through gopsutil. Process handles are kept
// between calls so per-process CPU is the share used since the previous
// call, not the average since the process started. A process seen for the
// first time reports 0.
type gopsutilStats struct {
	mu    sync.Mutex
	procs map[int32]*trackedProcess
}

type trackedProcess struct {
	proc *process.Process
	name string
}

func newGopsutilStats() *gopsutilStats {
	return &gopsutilStats{procs: make(map[int32]*trackedProcess)}
}

func (*gopsutilStats) CPUPercent(ctx context.Context) (float64, error) {
	// Zero interval compares against the previous call, so the first
	// reading after startup may be 0.
	pcts, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(pcts) == 0 {
		return 0, fmt.Errorf("no cpu data")
	}
	return pcts[0], nil
}

func (*gopsutilStats) RAMPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

func (s *gopsutilStats) Processes(ctx context.Context) ([]Process, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int32]*trackedProcess, len(pids))
	out := make([]Process, 0, len(pids))
	for _, pid := range pids {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		tp, err := s.track(ctx, pid)
		if err != nil {
			// Exited between listing and inspection.
			continue
		}
		seen[pid] = tp

		user, err := tp.proc.UsernameWithContext(ctx)
		if err != nil {
			user = "?"
		}
		cpuPct, err := tp.proc.PercentWithContext(ctx, 0)
		if err != nil {
			cpuPct = 0
		}
		memPct, err := tp.proc.MemoryPercentWithContext(ctx)
		if err != nil {
			memPct = 0
		}

		out = append(out, Process{
			User:          user,
			CPUPercent:    cpuPct,
			MemoryPercent: float64(memPct),
			PID:           pid,
			Name:          tp.name,
		})
	}
	s.procs = seen
	return out, nil
}

// track returns the cached handle for pid, or a new one when the pid is new
// or now belongs to a differently named process.
func (s *gopsutilStats) track(ctx context.Context, pid int32) (*trackedProcess, error) {
	if tp, ok := s.procs[pid]; ok {
		name, err := tp.proc.NameWithContext(ctx)
		if err != nil {
			return nil, err
		}
		if name == tp.name {
			return tp, nil
		}
	}

	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, err
	}
	name, err := proc.NameWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return &trackedProcess{proc: proc, name: name}, nil
}
