package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewStoreWithoutFileUsesDefaults(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	got := store.Current()
	require.Equal(t, Default(), got)
	require.True(t, got.Streaming)
	require.Equal(t, 0.7, got.Temperature)
}

func TestStoreSaveAndReloadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store, err := NewStore(path)
	require.NoError(t, err)

	value := Settings{Streaming: false, Temperature: 1.3, Instructions: "speak tersely"}
	require.NoError(t, store.Save(value))

	// A second store sees the persisted value.
	reopened, err := NewStore(path)
	require.NoError(t, err)
	require.Equal(t, value, reopened.Current())
}

func TestSaveRejectsInvalidTemperature(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	require.Error(t, store.Save(Settings{Temperature: 2.5}))
	require.Equal(t, Default(), store.Current(), "failed save must not replace the cached value")
}

func TestReloadKeepsPreviousOnBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store, err := NewStore(path)
	require.NoError(t, err)

	good := Settings{Streaming: true, Temperature: 0.4, Instructions: "ok"}
	require.NoError(t, store.Save(good))
	require.NoError(t, os.WriteFile(path, []byte("streaming: [broken"), 0o600))

	require.Error(t, store.Reload())
	require.Equal(t, good, store.Current(), "broken reload must keep the previous value")
}

func TestPartialFileFillsFromDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("temperature: 1.1\n"), 0o600))

	store, err := NewStore(path)
	require.NoError(t, err)
	got := store.Current()
	require.Equal(t, 1.1, got.Temperature)
	require.Equal(t, DefaultInstructions, got.Instructions)
}

func TestWatcherReloadsAndNotifies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(Default()))

	changed := make(chan Settings, 4)
	watcher, err := Watch(store, func(s Settings) {
		changed <- s
	})
	require.NoError(t, err)
	defer watcher.Close()

	want := Settings{Streaming: false, Temperature: 1.5, Instructions: "short answers"}
	require.NoError(t, os.WriteFile(path, []byte("streaming: false\ntemperature: 1.5\ninstructions: short answers\n"), 0o600))

	select {
	case got := <-changed:
		require.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
	require.Equal(t, want, store.Current())
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "settings.yaml"))
	require.NoError(t, err)
	require.NoError(t, store.Save(Default()))

	changed := make(chan Settings, 1)
	watcher, err := Watch(store, func(s Settings) { changed <- s })
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("streaming: false\n"), 0o600))

	select {
	case got := <-changed:
		t.Fatalf("unexpected notification: %+v", got)
	case <-time.After(300 * time.Millisecond):
	}
}
