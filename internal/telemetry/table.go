package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// ErrEmptyTable is returned when a dataset contains no records.
var ErrEmptyTable = errors.New("telemetry: dataset has no records")

// Record is one telemetry observation.
type Record struct {
	// Region groups records, e.g. "amer" or "emea".
	Region string

	// LatencyMs is the observed latency in milliseconds.
	LatencyMs float64

	// UptimePct is the observed uptime as a percentage (0 to 100).
	UptimePct float64
}

// rawRecord is the on-disk shape of a Record. Pointer fields let Parse tell a
// missing value from an explicit zero. Other fields in the file are ignored.
type rawRecord struct {
	Region    *string  `json:"region"`
	LatencyMs *float64 `json:"latency_ms"`
	UptimePct *float64 `json:"uptime_pct"`
}

// Table is an immutable, ordered set of records with a per-region index.
// It is safe for concurrent use because nothing mutates it after New returns.
type Table struct {
	records  []Record
	byRegion map[string][]Record
	regions  []string
}

// New validates records and builds a Table. The slice is copied; callers may
// reuse it afterwards.
func New(records []Record) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyTable
	}

	t := &Table{
		records:  make([]Record, len(records)),
		byRegion: make(map[string][]Record),
	}
	copy(t.records, records)

	for i, rec := range t.records {
		if err := validate(rec); err != nil {
			return nil, fmt.Errorf("telemetry: record %d: %w", i, err)
		}
		if _, seen := t.byRegion[rec.Region]; !seen {
			t.regions = append(t.regions, rec.Region)
		}
		// Source order is kept within a region so means sum in file order.
		t.byRegion[rec.Region] = append(t.byRegion[rec.Region], rec)
	}
	sort.Strings(t.regions)

	return t, nil
}

// Parse decodes a JSON array of records from r and builds a Table.
func Parse(r io.Reader) (*Table, error) {
	var raw []rawRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("telemetry: decode dataset: %w", err)
	}

	records := make([]Record, 0, len(raw))
	for i, rr := range raw {
		switch {
		case rr.Region == nil:
			return nil, fmt.Errorf("telemetry: record %d: region is required", i)
		case rr.LatencyMs == nil:
			return nil, fmt.Errorf("telemetry: record %d: latency_ms is required", i)
		case rr.UptimePct == nil:
			return nil, fmt.Errorf("telemetry: record %d: uptime_pct is required", i)
		}
		records = append(records, Record{
			Region:    *rr.Region,
			LatencyMs: *rr.LatencyMs,
			UptimePct: *rr.UptimePct,
		})
	}

	return New(records)
}

// Load reads the dataset file at path and builds a Table.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %q: %w", path, err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w (file %q)", err, path)
	}
	return t, nil
}

// Len returns the total number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// Records returns a copy of all records in source order.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Region returns the records for one region in source order and whether the
// region exists. The returned slice is shared; callers must not modify it.
func (t *Table) Region(id string) ([]Record, bool) {
	recs, ok := t.byRegion[id]
	return recs, ok
}

// Regions returns the sorted, distinct region identifiers in the table.
func (t *Table) Regions() []string {
	out := make([]string, len(t.regions))
	copy(out, t.regions)
	return out
}

func validate(rec Record) error {
	if rec.Region == "" {
		return errors.New("region must not be empty")
	}
	if math.IsNaN(rec.LatencyMs) || math.IsInf(rec.LatencyMs, 0) || rec.LatencyMs < 0 {
		return fmt.Errorf("latency_ms %v must be a non-negative number", rec.LatencyMs)
	}
	if math.IsNaN(rec.UptimePct) || rec.UptimePct < 0 || rec.UptimePct > 100 {
		return fmt.Errorf("uptime_pct %v is out of range [0, 100]", rec.UptimePct)
	}
	return nil
}
