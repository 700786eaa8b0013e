package common

import (
	"context"
	"sync"
)

// PauseGate is the "flag observed by the copy engine at chunk boundaries"
// from §4.2: Pause sets it, a transfer's goroutine blocks in
// WaitIfPaused until Resume or the bound context is cancelled. One gate is
// created per TransferRecord by the coordinator; the copy engine package
// only depends on this type, never on the coordinator.
type PauseGate struct {
	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
}

func NewPauseGate() *PauseGate {
	g := &PauseGate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Pause sets the flag and wakes nobody; a goroutine only blocks when it
// next calls WaitIfPaused.
func (g *PauseGate) Pause() {
	g.mu.Lock()
	g.paused = true
	g.mu.Unlock()
}

// Resume clears the flag and wakes every goroutine blocked in WaitIfPaused.
func (g *PauseGate) Resume() {
	g.mu.Lock()
	g.paused = false
	g.mu.Unlock()
	g.cond.Broadcast()
}

// WaitIfPaused blocks while the gate is paused. It also wakes (returning
// ctx.Err()) if ctx is cancelled while waiting, which is how a cancel
// during a pause unblocks the worker.
func (g *PauseGate) WaitIfPaused(ctx context.Context) error {
	g.mu.Lock()
	if !g.paused {
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.mu.Lock()
		for g.paused {
			g.cond.Wait()
			select {
			case <-ctx.Done():
				g.mu.Unlock()
				close(done)
				return
			default:
			}
		}
		g.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// Wake the helper goroutine's cond.Wait so it can observe ctx.Done
		// and exit instead of leaking; Resume (or cancel racing with a
		// concurrent resume) will eventually broadcast.
		g.Resume()
		return ctx.Err()
	}
}
