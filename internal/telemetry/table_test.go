package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDataset = `[
  {"region": "emea", "service": "checkout", "latency_ms": 120.5, "uptime_pct": 99.1, "timestamp": 20250301},
  {"region": "amer", "service": "catalog", "latency_ms": 100, "uptime_pct": 99, "timestamp": 20250302},
  {"region": "amer", "service": "payments", "latency_ms": 150, "uptime_pct": 98, "timestamp": 20250303},
  {"region": "emea", "service": "catalog", "latency_ms": 180.25, "uptime_pct": 97.5, "timestamp": 20250304}
]`

func TestParse_GroupsByRegionInSourceOrder(t *testing.T) {
	tbl, err := Parse(strings.NewReader(sampleDataset))
	require.NoError(t, err)

	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, []string{"amer", "emea"}, tbl.Regions())

	emea, ok := tbl.Region("emea")
	require.True(t, ok)
	require.Len(t, emea, 2)
	assert.Equal(t, 120.5, emea[0].LatencyMs)
	assert.Equal(t, 180.25, emea[1].LatencyMs)
	assert.Equal(t, 97.5, emea[1].UptimePct)
}

func TestParse_IgnoresUnknownFields(t *testing.T) {
	tbl, err := Parse(strings.NewReader(`[{"region":"apac","latency_ms":1,"uptime_pct":2,"extra":{"x":1}}]`))
	require.NoError(t, err)
	assert.Equal(t, []Record{{Region: "apac", LatencyMs: 1, UptimePct: 2}}, tbl.Records())
}

func TestRegion_Unknown(t *testing.T) {
	tbl, err := Parse(strings.NewReader(sampleDataset))
	require.NoError(t, err)

	recs, ok := tbl.Region("apac")
	assert.False(t, ok)
	assert.Empty(t, recs)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "not json", input: `{{`, wantErr: "decode dataset"},
		{name: "object instead of array", input: `{"region":"amer"}`, wantErr: "decode dataset"},
		{name: "missing region", input: `[{"latency_ms":1,"uptime_pct":1}]`, wantErr: "region is required"},
		{name: "missing latency", input: `[{"region":"a","uptime_pct":1}]`, wantErr: "latency_ms is required"},
		{name: "missing uptime", input: `[{"region":"a","latency_ms":1}]`, wantErr: "uptime_pct is required"},
		{name: "empty region", input: `[{"region":"","latency_ms":1,"uptime_pct":1}]`, wantErr: "region must not be empty"},
		{name: "negative latency", input: `[{"region":"a","latency_ms":-1,"uptime_pct":1}]`, wantErr: "non-negative"},
		{name: "uptime above 100", input: `[{"region":"a","latency_ms":1,"uptime_pct":100.5}]`, wantErr: "out of range"},
		{name: "wrong type", input: `[{"region":"a","latency_ms":"fast","uptime_pct":1}]`, wantErr: "decode dataset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_EmptyDataset(t *testing.T) {
	for _, input := range []string{`[]`, `null`} {
		_, err := Parse(strings.NewReader(input))
		assert.True(t, errors.Is(err, ErrEmptyTable), "input %s: got %v", input, err)
	}
}

func TestNew_CopiesInput(t *testing.T) {
	recs := []Record{{Region: "amer", LatencyMs: 10, UptimePct: 99}}
	tbl, err := New(recs)
	require.NoError(t, err)

	recs[0].LatencyMs = 999
	assert.Equal(t, 10.0, tbl.Records()[0].LatencyMs)
}

func TestLoad_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "telemetry.json")
	require.NoError(t, os.WriteFile(p, []byte(sampleDataset), 0o600))

	tbl, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 4, tbl.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/telemetry.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_CorruptFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "telemetry.json")
	require.NoError(t, os.WriteFile(p, []byte(`[{"region":`), 0o600))

	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), p)
}

func TestConcurrentReads(t *testing.T) {
	tbl, err := Parse(strings.NewReader(sampleDataset))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tbl.Region("amer")
			tbl.Regions()
			tbl.Records()
		}()
	}
	wg.Wait()
}
