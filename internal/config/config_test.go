package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.DataSource.Type)
	assert.Equal(t, "Close", cfg.DataSource.ValueColumn)
	assert.Equal(t, 60, cfg.Forecast.WindowSize)
	assert.Equal(t, 15, cfg.Forecast.MaxForecastDays)
	assert.Equal(t, "0 30 22 * * 1-5", cfg.Schedule.RefreshCron)
	assert.Equal(t, 10*time.Second, cfg.Model.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_source:
  type: yahoo
  symbol: WTI
model:
  type: remote
  url: http://model:8501
  timeout: 3s
forecast:
  window_size: 20
log:
  level: debug
  format: json
`), 0o644))

	t.Setenv("MAX_FORECAST_DAYS", "10")
	t.Setenv("SERVER_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", cfg.DataSource.Type)
	assert.Equal(t, "WTI", cfg.DataSource.Symbol)
	assert.Equal(t, "remote", cfg.Model.Type)
	assert.Equal(t, 3*time.Second, cfg.Model.Timeout)
	assert.Equal(t, 20, cfg.Forecast.WindowSize)
	assert.Equal(t, 10, cfg.Forecast.MaxForecastDays)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("forecast: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.DataSource.Type = "ftp" }},
		{"unknown model", func(c *Config) { c.Model.Type = "onnx" }},
		{"remote without url", func(c *Config) { c.Model.Type = "remote"; c.Model.URL = "" }},
		{"negative window", func(c *Config) { c.Forecast.WindowSize = -1 }},
		{"negative horizon", func(c *Config) { c.Forecast.MaxForecastDays = -5 }},
		{"lookback shorter than window", func(c *Config) { c.DataSource.LookbackDays = 30 }},
		{"telegram half configured", func(c *Config) { c.Telegram.BotToken = "token" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
