// Package aggregate computes per-region latency and uptime summaries from a
// telemetry.Table.
//
// stats.go holds the pure helpers: Percentile (linear interpolation between
// order statistics, rank = q*(n-1)) and Round (correctly rounded decimal
// rounding of the binary value).
//
// aggregator.go provides the Aggregator. New precomputes the
// threshold-independent figures for every region once; Compute then only
// counts breaches, which is a binary search over the sorted latencies.
//
// Output figures per region:
//   - AvgLatency: mean latency_ms, 2 decimals
//   - P95Latency: 95th percentile latency_ms, 2 decimals
//   - AvgUptime : mean uptime_pct / 100, 4 decimals
//   - Breaches  : records with latency_ms strictly above the threshold
package aggregate
