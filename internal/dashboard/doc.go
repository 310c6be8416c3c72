// Package dashboard implements the full-screen lab status TUI.
//
// The dashboard shows one column per lab machine: a host section with CPU
// and RAM readings, their history and the busiest processes, and a GPU
// section with usage and temperature charts for each accelerator. A title
// marquee scrolls across the top and a status line at the bottom reports
// the last sample status and age for every source.
//
// # Architecture
//
// The package uses the Bubble Tea framework, which follows The Elm Architecture
// (Model-Update-View pattern):
//
//   - Model: Holds the panels, the render scheduler and the layout
//   - Update: Processes key presses, resizes and frame ticks
//   - View: Composes the cached artifacts into the screen
//
// # Render Loop
//
// A frameMsg fires at the configured frame rate. Each frame advances the
// marquee and calls telemetry.Scheduler.Frame, which rebuilds a panel's
// chart or process table only when its source published something new and
// the render interval has passed. View never renders charts itself; it
// places the latest Surface of each artifact.
//
// Charts are braille area plots. Samples lost to a timeout or a decode
// error leave a gap in the plot and a marker under it:
//
//	·  timeout
//	×  decode error
//
// # Keyboard Shortcuts
//
//	q, Esc, Ctrl+C  - Quit
//	?               - Toggle help overlay
package dashboard
