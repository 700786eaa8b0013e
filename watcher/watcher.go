// Package watcher implements the per-volume file watcher of §4.4: a
// polling, depth-first directory scan that reports new or modified files
// matching an extension filter through a non-blocking callback.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval is §4.4's default scan cadence.
const DefaultPollInterval = 5 * time.Second

// FoundFile is what OnFileFound receives for a new or modified match.
type FoundFile struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Watcher owns one root directory and scans it on a fixed interval,
// remembering (path, mtime) across cycles so it can tell new and modified
// files apart from unchanged ones.
type Watcher struct {
	Root         string
	Extensions   map[string]struct{} // lowercase, leading dot, e.g. ".mov"
	PollInterval time.Duration
	OnFileFound  func(FoundFile)

	stopped  int32
	known    map[string]time.Time
	mu       sync.Mutex
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
}

// New builds a Watcher for root, matching any extension in exts (case
// insensitive, with or without a leading dot). A nil or empty exts matches
// every file.
func New(root string, exts []string, pollInterval time.Duration, onFound func(FoundFile)) *Watcher {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[normalizeExt(e)] = struct{}{}
	}
	return &Watcher{
		Root:         root,
		Extensions:   set,
		PollInterval: pollInterval,
		OnFileFound:  onFound,
		known:        make(map[string]time.Time),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

func normalizeExt(e string) string {
	e = strings.ToLower(strings.TrimPrefix(e, "*"))
	if !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}

// Start begins polling in a new goroutine. Calling Start more than once is
// a no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	go func() {
		defer close(w.doneCh)
		w.scan()
		ticker := time.NewTicker(w.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stopCh:
				return
			case <-ticker.C:
				w.scan()
			}
		}
	}()
}

// Stop requests the scan loop to halt. The stop flag is also checked mid
// traversal (between directory descents), so an in-progress scan of a
// large tree aborts within a bounded time rather than running to
// completion first.
func (w *Watcher) Stop() {
	if !atomic.CompareAndSwapInt32(&w.stopped, 0, 1) {
		return
	}
	close(w.stopCh)
	<-w.doneCh
}

func (w *Watcher) isStopped() bool {
	return atomic.LoadInt32(&w.stopped) == 1
}

func (w *Watcher) matches(name string) bool {
	if len(w.Extensions) == 0 {
		return true
	}
	_, ok := w.Extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// scan performs one depth-first traversal, reporting new/modified matches
// and evicting paths that no longer exist.
func (w *Watcher) scan() {
	seen := make(map[string]struct{})
	w.walk(w.Root, seen)

	w.mu.Lock()
	for path := range w.known {
		if _, ok := seen[path]; !ok {
			delete(w.known, path)
		}
	}
	w.mu.Unlock()
}

func (w *Watcher) walk(dir string, seen map[string]struct{}) {
	if w.isStopped() {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if w.isStopped() {
			return
		}
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			w.walk(full, seen)
			continue
		}

		if !w.matches(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		seen[full] = struct{}{}
		mtime := info.ModTime()

		w.mu.Lock()
		prev, known := w.known[full]
		isNewOrModified := !known || mtime.After(prev)
		w.known[full] = mtime
		w.mu.Unlock()

		if isNewOrModified && w.OnFileFound != nil {
			// non-blocking: the coordinator's fingerprint guard (§4.2)
			// is responsible for suppressing duplicates of in-flight work.
			go w.OnFileFound(FoundFile{Path: full, ModTime: mtime, Size: info.Size()})
		}
	}
}
