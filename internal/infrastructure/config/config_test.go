package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closebooks/backend/internal/domain/shared"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "closebooks-review", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 8080, cfg.App.Port)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "stdout", cfg.Log.Output)

	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, time.Minute, cfg.HTTP.IdleTimeout)
	assert.Equal(t, 1<<20, cfg.HTTP.MaxHeaderBytes)
	assert.Equal(t, int64(10<<20), cfg.HTTP.MaxBodySize)
	assert.Empty(t, cfg.HTTP.CORSAllowOrigins, "cross-origin access requires explicit configuration")
	assert.Equal(t, []string{"GET", "POST", "OPTIONS"}, cfg.HTTP.CORSAllowMethods)
	assert.Contains(t, cfg.HTTP.CORSAllowHeaders, "X-Request-ID")

	assert.Equal(t, 4, cfg.Review.Parallelism)
	assert.Equal(t, "json", cfg.Review.Format)
	assert.Empty(t, cfg.Review.BalanceSheetPath)

	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.CollectorEndpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	assert.Equal(t, cfg.App.Name, cfg.Telemetry.ServiceName)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.MetricInterval)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("REVIEW_APP_NAME", "review-staging")
	t.Setenv("REVIEW_APP_PORT", "9000")
	t.Setenv("REVIEW_LOG_LEVEL", "debug")
	t.Setenv("REVIEW_LOG_FORMAT", "json")
	t.Setenv("REVIEW_HTTP_READ_TIMEOUT", "30s")
	t.Setenv("REVIEW_REVIEW_PARALLELISM", "8")
	t.Setenv("REVIEW_REVIEW_FORMAT", "markdown")
	t.Setenv("REVIEW_TELEMETRY_ENABLED", "true")
	t.Setenv("REVIEW_TELEMETRY_COLLECTOR_ENDPOINT", "otel-collector:4317")
	t.Setenv("REVIEW_TELEMETRY_SAMPLING_RATIO", "0.25")
	t.Setenv("REVIEW_TELEMETRY_METRIC_INTERVAL", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "review-staging", cfg.App.Name)
	assert.Equal(t, 9000, cfg.App.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 8, cfg.Review.Parallelism)
	assert.Equal(t, "markdown", cfg.Review.Format)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "otel-collector:4317", cfg.Telemetry.CollectorEndpoint)
	assert.Equal(t, 0.25, cfg.Telemetry.SamplingRatio)
	assert.Equal(t, "review-staging", cfg.Telemetry.ServiceName,
		"service name falls back to the app name")
	assert.Equal(t, 45*time.Second, cfg.Telemetry.MetricInterval)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := `
[app]
name = "review-from-file"
port = 8180

[log]
level = "warn"

[review]
parallelism = 2
reconciliation_paths = ["recon-a.json", "recon-b.json"]

[telemetry]
service_name = "review-file"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(file), 0o600))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "review-from-file", cfg.App.Name)
	assert.Equal(t, 8180, cfg.App.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Review.Parallelism)
	assert.Equal(t, []string{"recon-a.json", "recon-b.json"}, cfg.Review.ReconciliationPaths)
	assert.Equal(t, "review-file", cfg.Telemetry.ServiceName)

	// Sections the file does not mention keep their defaults.
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "json", cfg.Review.Format)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
}

func TestLoadEnvironmentBeatsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("[log]\nlevel = \"warn\"\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("REVIEW_LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		key     string
		value   string
		keyword string
	}{
		{"unknown report format", "REVIEW_REVIEW_FORMAT", "xml", "review.format"},
		{"unknown log format", "REVIEW_LOG_FORMAT", "pretty", "log.format"},
		{"unknown log level", "REVIEW_LOG_LEVEL", "verbose", "log.level"},
		{"zero parallelism", "REVIEW_REVIEW_PARALLELISM", "0", "review.parallelism"},
		{"negative parallelism", "REVIEW_REVIEW_PARALLELISM", "-2", "review.parallelism"},
		{"sampling ratio above one", "REVIEW_TELEMETRY_SAMPLING_RATIO", "1.5", "sampling_ratio"},
		{"negative sampling ratio", "REVIEW_TELEMETRY_SAMPLING_RATIO", "-0.5", "sampling_ratio"},
		{"port out of range", "REVIEW_APP_PORT", "0", "app.port"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrConfiguration)
			assert.Contains(t, err.Error(), tc.keyword)
		})
	}
}

func TestLoadProductionCORSRules(t *testing.T) {
	t.Run("rejects wildcard origin in production", func(t *testing.T) {
		t.Setenv("REVIEW_APP_ENV", "production")
		t.Setenv("REVIEW_HTTP_CORS_ALLOW_ORIGINS", "*")

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrConfiguration)
		assert.Contains(t, err.Error(), "cors_allow_origins")
	})

	t.Run("accepts explicit origins in production", func(t *testing.T) {
		t.Setenv("REVIEW_APP_ENV", "production")
		t.Setenv("REVIEW_HTTP_CORS_ALLOW_ORIGINS", "https://app.closebooks.example")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"https://app.closebooks.example"}, cfg.HTTP.CORSAllowOrigins)
	})

	t.Run("accepts wildcard origin in development", func(t *testing.T) {
		t.Setenv("REVIEW_HTTP_CORS_ALLOW_ORIGINS", "*")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"*"}, cfg.HTTP.CORSAllowOrigins)
	})
}
