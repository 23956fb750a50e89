package viper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixdeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: fake\nwatcher:\n  interval: 250ms\ncache:\n  capacity: 16\n"), 0o600))

	c := New()
	c.SetDefault("cache.capacity", 256)
	ok, err := c.LoadFileIfExists(path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, path, c.ConfigFileUsed())
	assert.Equal(t, "fake", c.GetString("backend"))
	assert.Equal(t, 16, c.GetInt("cache.capacity"))
	assert.Equal(t, 250*time.Millisecond, c.GetDuration("watcher.interval"))

	var watcher struct {
		Interval time.Duration `mapstructure:"interval"`
	}
	require.NoError(t, c.UnmarshalKey("watcher", &watcher))
	assert.Equal(t, 250*time.Millisecond, watcher.Interval)
}

func TestLoadMissingFile(t *testing.T) {
	c := New()
	ok, err := c.LoadFileIfExists(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Error(t, c.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestBindEnv(t *testing.T) {
	t.Setenv("MIXDECKTEST_CACHE_CAPACITY", "32")
	c := New()
	c.SetDefault("cache.capacity", 256)
	c.BindEnv("MIXDECKTEST")
	assert.Equal(t, 32, c.GetInt("cache.capacity"))
	assert.True(t, c.IsSet("cache.capacity"))
}
