// Package mapping implements the extension-to-target-directory resolver of
// §4.5: given a file path, return its mapped target directory or
// signal that none applies.
package mapping

import (
	"path/filepath"
	"strings"
	"sync"
)

// Resolver holds the (extension, target directory) pairs of §3's data
// model, keyed by extension; the order in which pairs were added is not
// kept. It is safe for concurrent reads and writes: the engine resolves
// each discovered file against the current pairs while the shell may
// mutate mappings at any time. A watcher's extension filter is taken from
// the settings when the watcher starts and does not follow later changes
// to the Resolver.
type Resolver struct {
	mu  sync.RWMutex
	dir map[string]string // normalized ".ext" -> absolute directory
}

// NewResolver returns an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{dir: make(map[string]string)}
}

// Set associates ext (accepted as "*.ext", ".ext", or "ext") with target.
// target is normalized to an absolute, cleaned path relative to the
// current working directory if it wasn't already absolute.
func (r *Resolver) Set(ext, target string) {
	key := normalize(ext)
	abs := normalizeDir(target)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.dir[key] = abs
}

// Remove deletes any mapping for ext.
func (r *Resolver) Remove(ext string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dir, normalize(ext))
}

// Resolve returns the target directory mapped to path's extension, and
// whether a mapping exists at all.
func (r *Resolver) Resolve(path string) (target string, ok bool) {
	key := strings.ToLower(filepath.Ext(path))

	r.mu.RLock()
	defer r.mu.RUnlock()
	target, ok = r.dir[key]
	return
}

// Snapshot returns a copy of every (extension, target) pair currently
// configured, safe for the watcher to read without holding the Resolver's
// lock.
func (r *Resolver) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.dir))
	for k, v := range r.dir {
		out[k] = v
	}
	return out
}

// LoadAll replaces the mapping set wholesale from a plain extension ->
// directory map, e.g. as loaded from common.Settings.Mappings.
func (r *Resolver) LoadAll(mappings map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dir = make(map[string]string, len(mappings))
	for ext, target := range mappings {
		r.dir[normalize(ext)] = normalizeDir(target)
	}
}

// normalize canonicalizes "*.ext", ".ext", or "ext" to a lowercase ".ext".
func normalize(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "*"))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func normalizeDir(target string) string {
	abs, err := filepath.Abs(target)
	if err != nil {
		return filepath.Clean(target)
	}
	return abs
}
