package catalog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeFile(t, "kits:\n  starter: {}\n")
	c := New(NewYAMLSource(path, DefaultPermissionPrefix), DefaultPermissionPrefix, nil)
	require.NoError(t, c.Reload(context.Background()))

	w, err := NewWatcher(c, path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("kits:\n  starter: {}\n  daily: {}\n"), 0o600))

	require.Eventually(t, func() bool { return c.Exists("daily") }, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_BadFileKeepsPreviousCatalog(t *testing.T) {
	path := writeFile(t, "kits:\n  starter: {}\n")
	c := New(NewYAMLSource(path, DefaultPermissionPrefix), DefaultPermissionPrefix, nil)
	require.NoError(t, c.Reload(context.Background()))

	w, err := NewWatcher(c, path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("kits:\n  starter:\n    cooldown: whenever\n"), 0o600))
	time.Sleep(400 * time.Millisecond)
	require.True(t, c.Exists("starter"))
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	c := New(newMemSource(), "", nil)
	w, err := NewWatcher(c, t.TempDir()+"/kits.yml", nil)
	require.NoError(t, err)
	w.Stop()
	w.Stop()
}
