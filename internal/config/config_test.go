package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	c, err := Load(New(filepath.Join(dir, "missing.yaml")))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", c.API.BaseURL)
	assert.Equal(t, 10*time.Second, c.API.Timeout)
	assert.Equal(t, 2*time.Second, c.Autosave.QuietInterval)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "tokyo-night", c.UI.Theme)
	assert.Equal(t, filepath.Join(dir, "stn"), c.DataDir)
	assert.Equal(t, filepath.Join(dir, "stn", "stn.db"), c.DBPath())
	assert.Equal(t, filepath.Join(dir, "stn", "stn.log"), c.LogFile())
}

func TestFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
api:
  base_url: https://notes.example.com/api/
  timeout: 3s
autosave:
  quiet_interval: 500ms
log:
  file: /tmp/stn-test.log
ui:
  theme: paper
data_dir: `+dir+`
`), 0o644))

	t.Setenv("STN_LOG_LEVEL", "debug")

	c, err := Load(New(file))
	require.NoError(t, err)
	assert.Equal(t, "https://notes.example.com/api", c.API.BaseURL)
	assert.Equal(t, 3*time.Second, c.API.Timeout)
	assert.Equal(t, 500*time.Millisecond, c.Autosave.QuietInterval)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "/tmp/stn-test.log", c.LogFile())
	assert.Equal(t, "paper", c.UI.Theme)
	assert.Equal(t, dir, c.DataDir)
}

func TestBrokenFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("api: [unclosed"), 0o644))

	_, err := Load(New(file))
	assert.Error(t, err)
}

func TestEnvWithoutFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STN_API_TIMEOUT", "3s")
	t.Setenv("STN_UI_THEME", "paper")
	t.Setenv("STN_DATA_DIR", dir)

	c, err := Load(New(filepath.Join(dir, "missing.yaml")))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, c.API.Timeout)
	assert.Equal(t, "paper", c.UI.Theme)
	assert.Equal(t, dir, c.DataDir)
	assert.Equal(t, "http://localhost:5000/api", c.API.BaseURL)
}

func TestKeys(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"api.base_url", "api.timeout",
		"autosave.quiet_interval",
		"log.level", "log.file",
		"ui.theme",
		"data_dir", "debug",
	}, keys(reflect.TypeOf(Config{}), ""))
}
