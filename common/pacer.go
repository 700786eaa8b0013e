// Copyright © 2017 Microsoft <wastore@microsoft.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package common

import (
	"context"
	"sync/atomic"
	"time"
)

// pacerTickInterval is how often the token bucket is refilled.
const pacerTickInterval = 100 * time.Millisecond

// Pacer limits the number of bytes allowed to move per second by issuing
// tickets (bytes allowed) periodically. Copy engine strategies call
// RequestRightToSend before writing each chunk/window; the call blocks until
// enough tickets exist, which is the piece the upstream pacer left
// commented-out and unused.
type Pacer struct {
	bytesAvailable          int64
	availableBytesPerPeriod int64
	bytesTransferred        int64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPacer starts a pacer limiting throughput to bytesPerSecond. A
// bytesPerSecond of 0 means unlimited: RequestRightToSend becomes a no-op.
// Budgets below 10 bytes/second are rounded up to one byte per tick.
func NewPacer(bytesPerSecond int64) *Pacer {
	ctx, cancel := context.WithCancel(context.Background())
	perPeriod := bytesPerSecond * int64(pacerTickInterval) / int64(time.Second)
	if bytesPerSecond > 0 && perPeriod == 0 {
		perPeriod = 1
	}
	p := &Pacer{
		availableBytesPerPeriod: perPeriod,
		cancel:                  cancel,
		done:                    make(chan struct{}),
	}
	if bytesPerSecond <= 0 {
		close(p.done)
		return p
	}

	atomic.StoreInt64(&p.bytesAvailable, p.availableBytesPerPeriod)

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(pacerTickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				atomic.StoreInt64(&p.bytesAvailable, atomic.LoadInt64(&p.availableBytesPerPeriod))
			}
		}
	}()

	return p
}

// Unlimited reports whether this pacer imposes no rate limit.
func (p *Pacer) Unlimited() bool {
	return atomic.LoadInt64(&p.availableBytesPerPeriod) == 0
}

// RequestRightToSend blocks until bytesToSend tickets are available, or ctx
// is cancelled. A request larger than one tick's budget is granted in pieces
// of at most that budget. Unlimited pacers return immediately.
func (p *Pacer) RequestRightToSend(ctx context.Context, bytesToSend int64) error {
	if p.Unlimited() {
		return nil
	}

	perPeriod := atomic.LoadInt64(&p.availableBytesPerPeriod)
	for bytesToSend > 0 {
		piece := bytesToSend
		if piece > perPeriod {
			piece = perPeriod
		}
		if atomic.AddInt64(&p.bytesAvailable, -piece) >= 0 {
			atomic.AddInt64(&p.bytesTransferred, piece)
			bytesToSend -= piece
			continue
		}
		// put tickets back, we took more than were available
		atomic.AddInt64(&p.bytesAvailable, piece)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// BytesTransferred returns the cumulative number of bytes paced through.
func (p *Pacer) BytesTransferred() int64 {
	return atomic.LoadInt64(&p.bytesTransferred)
}

// Close stops the refill goroutine. Safe to call on an unlimited pacer.
func (p *Pacer) Close() {
	p.cancel()
	<-p.done
}
