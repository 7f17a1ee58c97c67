package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalton/oguz-cgroups-exporter/internal/logging"
)

func TestWatcherReloadsOnDebouncedWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("initial"), 0o644))

	var reloads int32
	w, err := New(path, func() error {
		atomic.AddInt32(&reloads, 1)
		return nil
	}, logging.New("pretty", logging.LevelError))
	require.NoError(t, err)

	done := make(chan struct{})
	go w.Run(done)
	defer close(done)

	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o644))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&reloads) == 1
	}, debounceWindow+2*time.Second, 50*time.Millisecond)
}

func TestWatcherIgnoresUnrelatedFilesInSameDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("initial"), 0o644))

	var reloads int32
	w, err := New(path, func() error {
		atomic.AddInt32(&reloads, 1)
		return nil
	}, logging.New("pretty", logging.LevelError))
	require.NoError(t, err)

	done := make(chan struct{})
	go w.Run(done)
	defer close(done)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))
	time.Sleep(debounceWindow + time.Second)
	assert.Equal(t, int32(0), atomic.LoadInt32(&reloads))
}

func TestWatcherRapidBurstDebouncesToOneReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("initial"), 0o644))

	var reloads int32
	w, err := New(path, func() error {
		atomic.AddInt32(&reloads, 1)
		return nil
	}, logging.New("pretty", logging.LevelError))
	require.NoError(t, err)

	done := make(chan struct{})
	go w.Run(done)
	defer close(done)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
		time.Sleep(100 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&reloads) == 1
	}, debounceWindow+2*time.Second, 50*time.Millisecond)

	time.Sleep(debounceWindow + time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reloads), "burst of writes must coalesce into exactly one reload")
}
