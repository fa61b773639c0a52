package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://saavn.dev", cfg.Saavn.BaseURL)
	assert.Equal(t, "https://itunes.apple.com", cfg.ITunes.BaseURL)
	assert.Equal(t, "https://api.deezer.com", cfg.Deezer.BaseURL)
	assert.InDelta(t, 0.72, cfg.Match.Title, 0.001)
	assert.InDelta(t, 0.65, cfg.Match.Artist, 0.001)
	assert.InDelta(t, 0.6, cfg.Match.Album, 0.001)
	assert.Equal(t, 30, cfg.Cache.FreshnessDays)
	assert.Equal(t, 10, cfg.Image.HashDistanceMax)
	assert.Equal(t, int64(2<<20), cfg.Image.MaxDownloadBytes)
	assert.Contains(t, cfg.Image.PlaceholderTokens, "no-image")
	assert.Equal(t, 4, cfg.Sweep.Concurrency)
	assert.Equal(t, 50, cfg.Batch.MaxSongs)
	assert.Equal(t, 30*24, int(cfg.Cache.FreshnessWindow().Hours()))
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
  database_url: covers.db
log:
  level: debug
  format: console
server:
  port: 9090
match:
  title: 0.8
cache:
  freshness_days: 7
image:
  known_generic_hashes:
    - "8f373714acfcf4d0"
admin:
  token: hunter2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "covers.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.8, cfg.Match.Title, 0.001)
	assert.InDelta(t, 0.65, cfg.Match.Artist, 0.001, "unset keys keep defaults")
	assert.Equal(t, 7, cfg.Cache.FreshnessDays)
	assert.Equal(t, []string{"8f373714acfcf4d0"}, cfg.Image.KnownGenericHashes)
	assert.Equal(t, "hunter2", cfg.Admin.Token)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("COVERART_STORE_DRIVER", "sqlite")
	t.Setenv("COVERART_ADMIN_TOKEN", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "s3cret", cfg.Admin.Token)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}

func TestProviderTimeout(t *testing.T) {
	p := ProviderConfig{TimeoutSecs: 10}
	assert.Equal(t, "10s", p.Timeout().String())
}
