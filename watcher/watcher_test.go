package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type foundCollector struct {
	mu    sync.Mutex
	found []FoundFile
}

func (c *foundCollector) onFound(f FoundFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.found = append(c.found, f)
}

func (c *foundCollector) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.found))
	for i, f := range c.found {
		out[i] = f.Path
	}
	return out
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestWatcherFindsMatchingFilesOnFirstScan(t *testing.T) {
	a := assert.New(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "clip.mov"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	c := &foundCollector{}
	w := New(root, []string{"mov"}, 20*time.Millisecond, c.onFound)
	w.Start()
	defer w.Stop()

	waitUntil(t, time.Second, func() bool { return len(c.paths()) == 1 })
	a.Equal([]string{filepath.Join(root, "clip.mov")}, c.paths())
}

func TestWatcherNoExtensionsMatchesEverything(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "anything.bin"), []byte("x"), 0o644))

	c := &foundCollector{}
	w := New(root, nil, 20*time.Millisecond, c.onFound)
	w.Start()
	defer w.Stop()

	waitUntil(t, time.Second, func() bool { return len(c.paths()) == 1 })
}

func TestWatcherIgnoresUnchangedFilesAcrossScans(t *testing.T) {
	a := assert.New(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "clip.mov"), []byte("x"), 0o644))

	c := &foundCollector{}
	w := New(root, []string{".mov"}, 15*time.Millisecond, c.onFound)
	w.Start()
	defer w.Stop()

	waitUntil(t, time.Second, func() bool { return len(c.paths()) == 1 })
	time.Sleep(100 * time.Millisecond)
	a.Len(c.paths(), 1, "unchanged file should be reported only once")
}

func TestWatcherReportsModifiedFileAgain(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "clip.mov")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	c := &foundCollector{}
	w := New(root, []string{".mov"}, 15*time.Millisecond, c.onFound)
	w.Start()
	defer w.Stop()

	waitUntil(t, time.Second, func() bool { return len(c.paths()) == 1 })

	later := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	waitUntil(t, time.Second, func() bool { return len(c.paths()) == 2 })
}

func TestWatcherScansSubdirectories(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "nested", "deeper")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "clip.mov"), []byte("x"), 0o644))

	c := &foundCollector{}
	w := New(root, []string{".mov"}, 20*time.Millisecond, c.onFound)
	w.Start()
	defer w.Stop()

	waitUntil(t, time.Second, func() bool { return len(c.paths()) == 1 })
}

func TestWatcherStartIsIdempotent(t *testing.T) {
	root := t.TempDir()
	c := &foundCollector{}
	w := New(root, []string{".mov"}, 20*time.Millisecond, c.onFound)
	w.Start()
	w.Start() // must not spawn a second scan loop or panic on double-close
	w.Stop()
}

func TestNormalizeExtForms(t *testing.T) {
	a := assert.New(t)
	a.Equal(".mov", normalizeExt("*.mov"))
	a.Equal(".mov", normalizeExt(".MOV"))
	a.Equal(".mov", normalizeExt("mov"))
}
