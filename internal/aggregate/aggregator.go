package aggregate

import (
	"sort"

	"github.com/obsidianstack/regionlatency/internal/telemetry"
)

// Rounding precision for each output figure.
const (
	latencyPlaces = 2
	uptimePlaces  = 4
)

// P95 is the quantile reported as RegionMetrics.P95Latency.
const P95 = 0.95

// Query selects the regions to summarise and the breach threshold.
type Query struct {
	// Regions may be empty, contain duplicates, or name unknown regions.
	Regions []string

	// ThresholdMs is the latency above which a record counts as a breach.
	// Any value is accepted, including zero and negatives.
	ThresholdMs float64
}

// RegionMetrics is the summary for one region.
type RegionMetrics struct {
	AvgLatency float64
	P95Latency float64
	AvgUptime  float64 // fraction, 0 to 1
	Breaches   int
}

// Result maps region identifiers to their summaries. Regions with no records
// are absent.
type Result map[string]RegionMetrics

// regionSummary holds the threshold-independent figures for one region.
type regionSummary struct {
	avgLatency float64
	p95Latency float64
	avgUptime  float64
	sorted     []float64 // latencies, ascending
}

// Aggregator answers queries against one immutable telemetry table.
//
// All methods are safe for concurrent use.
type Aggregator struct {
	table   *telemetry.Table
	regions map[string]*regionSummary
}

// New builds an Aggregator over t, precomputing per-region summaries.
func New(t *telemetry.Table) *Aggregator {
	a := &Aggregator{
		table:   t,
		regions: make(map[string]*regionSummary),
	}
	for _, id := range t.Regions() {
		recs, _ := t.Region(id)
		a.regions[id] = summarise(recs)
	}
	return a
}

// Compute returns the metrics for every known region named in q.
// Duplicate region names produce a single entry.
func (a *Aggregator) Compute(q Query) Result {
	out := make(Result, len(q.Regions))
	for _, id := range q.Regions {
		if _, done := out[id]; done {
			continue
		}
		s, ok := a.regions[id]
		if !ok {
			continue
		}
		out[id] = RegionMetrics{
			AvgLatency: s.avgLatency,
			P95Latency: s.p95Latency,
			AvgUptime:  s.avgUptime,
			Breaches:   s.breaches(q.ThresholdMs),
		}
	}
	return out
}

// Regions returns the sorted region identifiers the Aggregator can answer for.
func (a *Aggregator) Regions() []string {
	return a.table.Regions()
}

// RecordCount returns the number of records held for region id (0 if unknown).
func (a *Aggregator) RecordCount(id string) int {
	if s, ok := a.regions[id]; ok {
		return len(s.sorted)
	}
	return 0
}

func summarise(recs []telemetry.Record) *regionSummary {
	latencies := make([]float64, len(recs))
	uptimes := make([]float64, len(recs))
	for i, r := range recs {
		latencies[i] = r.LatencyMs
		uptimes[i] = r.UptimePct
	}

	// Means are taken before sorting so the sum follows source order.
	avgLatency := mean(latencies)
	avgUptime := mean(uptimes) / 100

	sorted := latencies
	sort.Float64s(sorted)

	return &regionSummary{
		avgLatency: Round(avgLatency, latencyPlaces),
		p95Latency: Round(Percentile(sorted, P95), latencyPlaces),
		avgUptime:  Round(avgUptime, uptimePlaces),
		sorted:     sorted,
	}
}

// breaches counts latencies strictly greater than threshold.
func (s *regionSummary) breaches(threshold float64) int {
	firstAbove := sort.Search(len(s.sorted), func(i int) bool {
		return s.sorted[i] > threshold
	})
	return len(s.sorted) - firstAbove
}
