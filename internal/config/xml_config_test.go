package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.config")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data", "images"), cfg.GetImagesDir())
	assert.Equal(t, filepath.Join(dir, "data", "exams.duckdb"), cfg.Storage.DatabasePath)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<PracticeExamServer>")
}

func TestLoadConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.config")

	cfg := DefaultConfig()
	cfg.Server.Port = 9100
	cfg.Security.AllowFileDeletion = false
	cfg.Advanced.LogLevel = "debug"
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, loaded.Server.Port)
	assert.False(t, loaded.Security.AllowFileDeletion)
	assert.Equal(t, log.DEBUG, loaded.GetLogLevel())
	assert.Equal(t, "0.0.0.0:9100", loaded.GetServerAddr())
}

func TestLoadConfig_ClampsNonPositiveIntervals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.config")

	cfg := DefaultConfig()
	cfg.Processing.CleanupIntervalMinutes = 0
	cfg.Processing.SessionTimeoutMinutes = -5
	cfg.Processing.JobTimeoutMinutes = 0
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	def := DefaultConfig().Processing
	assert.Equal(t, def.CleanupIntervalMinutes, loaded.Processing.CleanupIntervalMinutes)
	assert.Equal(t, def.SessionTimeoutMinutes, loaded.Processing.SessionTimeoutMinutes)
	assert.Equal(t, def.JobTimeoutMinutes, loaded.Processing.JobTimeoutMinutes)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "elsewhere")
	t.Setenv("PORT", "7000")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadConfig(filepath.Join(dir, "server.config"))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, dataDir, cfg.GetDataDir())
	assert.Equal(t, filepath.Join(dataDir, "uploads"), cfg.GetUploadDir())
	assert.Equal(t, filepath.Join(dataDir, "exams.duckdb"), cfg.Storage.DatabasePath)
	assert.Equal(t, log.ERROR, cfg.GetLogLevel())
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.config")
	require.NoError(t, os.WriteFile(path, []byte("<PracticeExamServer><Server>"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "server.config"))
	require.NoError(t, err)

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.GetUploadDir())
	assert.DirExists(t, cfg.GetImagesDir())
}

func TestGetLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	for in, want := range map[string]log.Lvl{
		"":        log.INFO,
		"verbose": log.INFO,
		"WARN":    log.WARN,
		"off":     log.OFF,
	} {
		cfg.Advanced.LogLevel = in
		assert.Equal(t, want, cfg.GetLogLevel(), in)
	}
}
