// Package api implements the HTTP interface of regionlatency-server.
//
// New(aggregator, options) returns an http.Handler that serves:
//
//	GET  /        : liveness: {"status": "ok"}
//	POST /        : per-region metrics for {"regions": [...], "threshold_ms": n}
//	GET  /metrics : Prometheus text exposition for this process
//
// All JSON endpoints:
//   - Respond with Content-Type: application/json
//   - Report client errors as {"error": "..."} with a 4xx status
//     (400 malformed body, 404 unknown path, 405 wrong method, 413 body too large)
//
// Every route passes through the same middleware chain: request ID
// (X-Request-ID, honoured if supplied), structured request logging with
// Prometheus counters, panic recovery, then CORS.
//
// JSON types are defined in types.go.
package api
