package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, 2025, cfg.EventYear)
	assert.Equal(t, 3*time.Hour, cfg.EventDuration)
	assert.Equal(t, "All Events", cfg.AllCategory)
	assert.Equal(t, DefaultRefreshInterval, cfg.RefreshInterval)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFileIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
listen: ":9000"
timezone: "Asia/Kolkata"
event_year: 2026
event_duration: 90m
feeds:
  - url: https://example.com/cal.ics
    category: Workshops
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 2026, cfg.EventYear)
	assert.Equal(t, 90*time.Minute, cfg.EventDuration)
	assert.Equal(t, DefaultCatalogPath, cfg.CatalogPath)
	assert.Equal(t, DefaultFeedsRefresh, cfg.FeedsRefresh)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "https://example.com/cal.ics", cfg.Feeds[0].ID)
	assert.Nil(t, cfg.BasicAuth)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9000\"\nevent_year: 2024\n"), 0o600))

	t.Setenv("EVENTBOARD_LISTEN", ":7000")
	t.Setenv("EVENTBOARD_EVENT_DURATION", "2h")
	t.Setenv("EVENTBOARD_STRICT_CATALOG", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, 2024, cfg.EventYear)
	assert.Equal(t, 2*time.Hour, cfg.EventDuration)
	assert.True(t, cfg.StrictCatalog)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}

func TestPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.EventYear = 2030
	cfg.EventDuration = time.Hour

	p := cfg.Policy()
	assert.Equal(t, 2030, p.Year)
	assert.Equal(t, time.Hour, p.Duration)
	assert.Equal(t, "UTC", p.Location.String())
}

func TestLocation_UnknownFallsBackToLocal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus_Mons"
	assert.Equal(t, time.Local, cfg.Location())

	cfg.Timezone = ""
	assert.Equal(t, time.Local, cfg.Location())
}
