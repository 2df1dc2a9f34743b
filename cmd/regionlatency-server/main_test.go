package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/regionlatency/internal/aggregate"
	"github.com/obsidianstack/regionlatency/internal/config"
)

func TestEmbeddedDataset(t *testing.T) {
	table, source, err := loadTable(config.Default())
	require.NoError(t, err)
	assert.Equal(t, "embedded", source)
	assert.Equal(t, []string{"amer", "apac", "emea"}, table.Regions())

	res := aggregate.New(table).Compute(aggregate.Query{
		Regions:     []string{"apac", "emea", "amer"},
		ThresholdMs: 0,
	})
	require.Len(t, res, 3)
	for region, m := range res {
		n, _ := table.Region(region)
		assert.Equal(t, len(n), m.Breaches, "every record breaches a zero threshold in %s", region)
		assert.True(t, m.AvgUptime >= 0 && m.AvgUptime <= 1, "avg_uptime out of range in %s", region)
		assert.LessOrEqual(t, m.AvgLatency, m.P95Latency+0.01)
	}
}

func TestLoadConfig_MissingDefaultUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, fromFile, err := loadConfig(path, false)
	require.NoError(t, err)
	assert.False(t, fromFile)
	assert.Equal(t, config.DefaultHTTPPort, cfg.Server.HTTPPort)
	assert.Empty(t, cfg.DataPath())
}

func TestLoadConfig_MissingExplicitFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")

	_, _, err := loadConfig(path, true)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidFileFailsEvenWhenImplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: -1\n"), 0o600))

	_, _, err := loadConfig(path, false)
	assert.Error(t, err)
}

func TestLoadTable_FromDataPath(t *testing.T) {
	dir := t.TempDir()
	data := `[{"region":"amer","latency_ms":120.5,"uptime_pct":99.1}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "telemetry.json"), []byte(data), 0o600))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("data:\n  path: telemetry.json\n"), 0o600))

	cfg, fromFile, err := loadConfig(cfgPath, true)
	require.NoError(t, err)
	require.True(t, fromFile)

	table, source, err := loadTable(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "telemetry.json"), source)
	assert.Equal(t, 1, table.Len())
}

func TestLoadTable_BadDataPath(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("data:\n  path: missing.json\n"), 0o600))

	cfg, _, err := loadConfig(cfgPath, true)
	require.NoError(t, err)

	_, _, err = loadTable(cfg)
	assert.Error(t, err)
}
