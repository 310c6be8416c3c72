// Package cli implements the labdash command tree.
//
//	labdash              run the dashboard (same as 'labdash dashboard')
//	labdash send         push this machine's telemetry to a dashboard
//	labdash init         write a labdash.yaml
//	labdash version      print build information
//	labdash completion   print a shell completion script
//
// Commands return structured errors from internal/errors; Execute prints
// them and exits non-zero.
package cli
