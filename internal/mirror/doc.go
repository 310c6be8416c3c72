// Package mirror serves a read-only HTTP and WebSocket view of the
// dashboard's telemetry, for machines that cannot see the kiosk screen.
//
// Routes:
//
//	GET /healthz                    liveness and source count
//	GET /api/sources                every source with its last status
//	GET /api/sources/:panel/:kind   one source's full series
//	GET /ws                         every source's series, each push interval
//
// The mirror only reads Monitor.Series and Publisher.Latest. It never
// consumes a publisher's update, so it does not compete with the render
// loop for fresh snapshots.
package mirror
