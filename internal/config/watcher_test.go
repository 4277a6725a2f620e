package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", "[history]\nmax_size = 5\n")

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config, err error) {
		if err == nil {
			reloaded <- cfg
		}
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[history]\nmax_size = 8\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 8, cfg.History.MaxSize)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", "")

	reloaded := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(*Config, error) {
		reloaded <- struct{}{}
	}, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, dir, "other.toml", "x = 1")

	select {
	case <-reloaded:
		t.Fatal("reload triggered by an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherCloseIdempotent(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", "")
	w, err := NewWatcher(path, nil)
	require.NoError(t, err)

	abs, _ := filepath.Abs(path)
	assert.Equal(t, abs, w.Path())
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestWatcherCloseWaitsForReload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", "[history]\nmax_size = 5\n")

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	var finished atomic.Bool
	w, err := NewWatcher(path, func(cfg *Config, err error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		finished.Store(true)
	}, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[history]\nmax_size = 6\n"), 0o644))
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	closed := make(chan error, 1)
	go func() { closed <- w.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while a reload was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the reload finished")
	}
	assert.True(t, finished.Load(), "Close returned before the reload callback finished")
}
