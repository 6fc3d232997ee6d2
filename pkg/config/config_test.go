package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
portal:
  timeout: 30s
datasets:
  - kind: groundwater_level
  - kind: precipitation
    id: "100254"
    start_year: 2000
  - kind: borehole
    id: "100182"
    columns:
      station_id: bohrung_nr
      station_name: bezeichnung
      elevation: terrainhoehe
controllers:
  - type: rest
    rest:
      http_port: 9090
  - type: refresh
    refresh:
      schedule: "0 4 * * *"
      datasets: [groundwater_level]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestYAMLProviderLoadConfig(t *testing.T) {
	p := NewYAMLProvider(writeConfig(t, sampleConfig))

	cfg, err := p.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.Portal.BaseURL)
	assert.Equal(t, DefaultTimezone, cfg.Portal.Timezone)
	assert.Equal(t, 30*time.Second, cfg.Portal.Timeout)
	assert.Equal(t, DefaultStationIDWidth, cfg.Portal.StationIDWidth)

	gw, ok := cfg.Dataset("groundwater_level")
	require.True(t, ok)
	assert.Equal(t, DefaultGroundwaterDataset, gw.ID)
	assert.Equal(t, DefaultStartYear, gw.StartYear)
	assert.Equal(t, "stationnr", gw.Columns.StationID)
	assert.Equal(t, "timestamp", gw.Columns.Timestamp)

	bh, ok := cfg.Dataset("borehole")
	require.True(t, ok)
	assert.Equal(t, "bohrung_nr", bh.Columns.StationID)
	assert.Equal(t, 0, bh.StartYear)
	assert.Empty(t, bh.Columns.Timestamp)

	assert.Equal(t, "borehole", cfg.CatalogDataset)
	assert.Equal(t, "mean", cfg.Dashboard.DefaultStatistic)
	assert.Equal(t, "day_of_year", cfg.Dashboard.DefaultGranularity)

	require.Len(t, cfg.Controllers, 2)
	assert.Equal(t, 9090, cfg.Controllers[0].RESTServer.HTTPPort)
	assert.Equal(t, "0 4 * * *", cfg.Controllers[1].Refresh.Schedule)

	datasets, err := p.GetDatasets()
	require.NoError(t, err)
	assert.Len(t, datasets, 3)
}

func TestYAMLProviderValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no datasets", "portal: {}\n"},
		{"unknown kind", "datasets:\n  - kind: rivers\n    id: x\n"},
		{"precipitation without id", "datasets:\n  - kind: precipitation\n"},
		{"duplicate kind", "datasets:\n  - kind: groundwater_level\n  - kind: groundwater_level\n"},
		{"catalog dataset missing", "catalog_dataset: borehole\ndatasets:\n  - kind: groundwater_level\n"},
		{"bad statistic", "dashboard:\n  default_statistic: mode\ndatasets:\n  - kind: groundwater_level\n"},
		{"bad timezone", "portal:\n  timezone: Mars/Olympus\ndatasets:\n  - kind: groundwater_level\n"},
		{"refresh without schedule", "datasets:\n  - kind: groundwater_level\ncontrollers:\n  - type: refresh\n"},
		{"unknown controller", "datasets:\n  - kind: groundwater_level\ncontrollers:\n  - type: ftp\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewYAMLProvider(writeConfig(t, tt.body)).LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestYAMLProviderMissingFile(t *testing.T) {
	_, err := NewYAMLProvider(filepath.Join(t.TempDir(), "nope.yaml")).GetPortal()
	assert.Error(t, err)
}

func TestViperProviderEnvOverrides(t *testing.T) {
	t.Setenv("GROUNDWATCH_PORTAL_BASE_URL", "https://example.org")
	t.Setenv("GROUNDWATCH_PORTAL_MAX_RETRIES", "7")
	t.Setenv("GROUNDWATCH_DASHBOARD_DEFAULT_STATISTIC", "median")

	p := NewViperProvider(writeConfig(t, sampleConfig))
	cfg, err := p.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://example.org", cfg.Portal.BaseURL)
	assert.Equal(t, 7, cfg.Portal.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Portal.Timeout)
	assert.Equal(t, "median", cfg.Dashboard.DefaultStatistic)
	assert.Len(t, cfg.Datasets, 3)
}

func TestViperProviderWithoutFile(t *testing.T) {
	p := NewViperProvider("")
	cfg, err := p.LoadConfig()
	require.NoError(t, err)

	require.Len(t, cfg.Datasets, 1)
	assert.Equal(t, DefaultGroundwaterDataset, cfg.Datasets[0].ID)
	assert.Equal(t, "groundwater_level", cfg.CatalogDataset)
	assert.True(t, p.IsReadOnly())
}
