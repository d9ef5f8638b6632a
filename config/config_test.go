package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.True(t, cfg.Renderer.VSync)
	assert.Equal(t, 60, cfg.Renderer.TickRate)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
window:
  title: overlay
  width: 1920
renderer:
  vsync: false
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "overlay", cfg.Window.Title)
	assert.Equal(t, 1920, cfg.Window.Width)
	// Untouched keys keep their defaults.
	assert.Equal(t, 720, cfg.Window.Height)
	assert.False(t, cfg.Renderer.VSync)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
