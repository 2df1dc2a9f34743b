// Package telemetry holds the read-only table of per-region latency and
// uptime observations loaded once at startup.
package telemetry
