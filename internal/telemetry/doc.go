// Package telemetry ingests GPU and host utilization samples and hands them
// to the render loop.
//
// # Pipeline
//
//	SampleSource -> Receiver -> RollingBuffer -> Publisher -> Scheduler -> renderer
//
// Each monitored source gets its own Receiver goroutine. A Receiver asks its
// SampleSource for one Reading per cycle, appends one Sample per channel to
// that channel's RollingBuffer, publishes a Snapshot, and sleeps for the poll
// interval. Acquisition failures never stop the loop: a wait that expires is
// recorded as a StatusTimeout sample, anything else as StatusDecodeError.
//
// # Handoff
//
// Publisher keeps only the latest Snapshot plus a dirty flag. Producers call
// RequestUpdate and return immediately; the render loop calls ConsumeIfStale
// once per frame. Updates that arrive between two polls collapse into one.
//
// Scheduler decides how often artifacts (rendered charts, tables) are rebuilt.
// It is driven from the render loop only, so artifacts are owned by that loop
// and background goroutines never touch drawable state.
//
// # Sources
//
//	UDPSource        - JSON datagrams on a bound UDP port
//	LocalGPUSource   - nvidia-smi on this machine
//	LocalHostSource  - gopsutil CPU/RAM and process table on this machine
//
// # Assembly
//
// Station turns a config.Config into Monitors, starts their receivers, and
// runs the shutdown sequence: cancel, wait for every receiver, close sources.
package telemetry
