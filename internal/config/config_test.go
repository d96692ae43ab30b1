package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
database:
  dsn: postgres://scanner@db:5432/activities
scheduler:
  interval: 6h
pipeline:
  maxConcurrent: 5
  itemTimeout: 90s
  minScore: 0.4
supervision:
  maxPrice: 10
sources:
  - name: centro-mayores
    url: https://example.org/actividades
    type: HTML
    container: div.evento
    fields:
      titulo:
        selector: h3
        required: true
    fieldMapping:
      titulo: title
      fecha: start_date
  - name: folletos
    url: https://example.org/folletos
    type: PDF
    enabled: false
`

func loadFromYAML(t *testing.T, content string) Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("ACTIVITY_SCANNER_CONFIG", path)
	return Load()
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	cfg := loadFromYAML(t, sampleYAML)

	assert.Equal(t, "postgres://scanner@db:5432/activities", cfg.Database.DSN)
	assert.Equal(t, 6*time.Hour, cfg.Scheduler.Interval.Std())
	assert.Equal(t, 5, cfg.Pipeline.MaxConcurrent)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.ItemTimeout.Std())
	assert.InDelta(t, 0.4, cfg.Pipeline.MinScore, 1e-9)
	assert.InDelta(t, 10, cfg.Supervision.MaxPrice, 1e-9)

	// untouched sections keep their defaults
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", cfg.Judge.Endpoint)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoadSources(t *testing.T) {
	cfg := loadFromYAML(t, sampleYAML)

	require.Len(t, cfg.Sources, 2)
	first := cfg.Sources[0]
	assert.True(t, first.IsEnabled())
	assert.Equal(t, "div.evento", first.Container)
	assert.True(t, first.Fields["titulo"].Required)
	assert.Equal(t, "title", first.FieldMapping["titulo"])

	assert.False(t, cfg.Sources[1].IsEnabled())
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://env@db:5432/activities")
	t.Setenv("JUDGE_API_KEY", "sk-env")
	t.Setenv("SCAN_INTERVAL", "2h")

	cfg := loadFromYAML(t, sampleYAML)

	assert.Equal(t, "postgres://env@db:5432/activities", cfg.Database.DSN)
	assert.Equal(t, "sk-env", cfg.Judge.APIKey)
	assert.Equal(t, 2*time.Hour, cfg.Scheduler.Interval.Std())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv("ACTIVITY_SCANNER_CONFIG", "")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.Scheduler.Interval.Std())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Sources)
}
