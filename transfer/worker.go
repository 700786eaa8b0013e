package transfer

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/geekfreaks/ingestengine/common"
	"github.com/geekfreaks/ingestengine/copyengine"
)

// dequeueTimeout bounds how long the dispatch loop waits for a wake signal
// before re-checking the stop flag, matching §5's "blocking dequeue
// with timeout" suspension point.
const dequeueTimeout = 200 * time.Millisecond

// dispatchLoop is the single coordinator dispatch loop of §5: it
// pulls from the priority queue and dispatches to a bounded pool of N
// copy workers (the semaphore), never copying itself.
func (c *Coordinator) dispatchLoop() {
	defer c.wg.Done()

	for {
		if c.isStopped() {
			return
		}

		if err := c.sem.Acquire(c.rootCtx, 1); err != nil {
			return
		}

		rec, ok := c.tryDequeue()
		if !ok {
			c.sem.Release(1)
			select {
			case <-c.stopCh:
				return
			case <-c.wakeCh:
			case <-time.After(dequeueTimeout):
			}
			continue
		}

		c.wg.Add(1)
		go c.runTransfer(rec)
	}
}

func (c *Coordinator) isStopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// tryDequeue pops the highest-priority queued transfer (FIFO tie-break)
// and transitions it to Running under the coordinator mutex.
func (c *Coordinator) tryDequeue() (*TransferRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || c.queue.Len() == 0 {
		return nil, false
	}

	item := heap.Pop(&c.queue).(*queueItem)
	delete(c.queueIdx, item.id)

	rec, ok := c.records[item.id]
	if !ok {
		return nil, false
	}
	rec.Status = common.ETransferStatus.Running()
	rec.StartedAt = time.Now()
	return rec, true
}

// runTransfer executes one transfer's copy via the copy engine and applies
// the result, emitting the event sequence §4.2 requires. It always
// releases the dispatch semaphore slot and the coordinator waitgroup.
func (c *Coordinator) runTransfer(rec *TransferRecord) {
	defer c.wg.Done()
	defer c.sem.Release(1)

	id := rec.ID

	ctx, cancel := context.WithCancel(c.rootCtx)
	gate := common.NewPauseGate()

	c.mu.Lock()
	c.cancelFuncs[id] = cancel
	c.pauseGates[id] = gate
	c.mu.Unlock()
	defer cancel()

	c.bus.Publish(common.EventStarted, startedPayload{ID: id, Filename: rec.SourcePath})

	result, copyErr := copyengine.Copy(ctx, rec.SourcePath, rec.TargetPath, copyengine.Options{
		BufferSize:            c.cfg.BufferSize,
		ChunkSize:             c.cfg.ChunkSize,
		Verify:                c.cfg.VerifyMode,
		DeleteSourceOnSuccess: c.cfg.DeleteSourceOnSuccess,
		Pacer:                 c.pacer,
		SlicePool:             c.cfg.SlicePool,
		System:                c.cfg.System,
		PauseGate:             gate,
		OnProgress: func(p copyengine.Progress) {
			c.mu.Lock()
			if r, ok := c.records[id]; ok {
				if delta := p.TransferredBytes - r.TransferredBytes; delta > 0 {
					c.throughput.Add(uint64(delta))
				}
				r.TransferredBytes = p.TransferredBytes
			}
			c.mu.Unlock()
			c.bus.Publish(common.EventProgress, progressPayload{
				ID:               id,
				Fraction:         fraction(p.TransferredBytes, p.TotalBytes),
				SpeedBytesPerSec: p.SmoothedBytesPerSec,
				ETASeconds:       p.ETASeconds,
				Total:            p.TotalBytes,
				Transferred:      p.TransferredBytes,
			})
		},
	})

	c.mu.Lock()
	r, ok := c.records[id]
	if !ok {
		c.mu.Unlock()
		return
	}

	if copyErr != nil {
		if copyErr.Kind == common.EErrorKind.Cancelled() {
			// A torn-down context surfaces as Cancelled regardless of why
			// the coordinator tore it down; pendingCancelKind carries the
			// real reason (e.g. source_volume_detached) when this wasn't a
			// plain Cancel call.
			if pending, ok := c.pendingCancelKind[id]; ok {
				delete(c.pendingCancelKind, id)
				message := pending.String()
				c.finalizeLocked(r, common.ETransferStatus.Error(), pending, message)
				c.mu.Unlock()
				c.bus.Publish(common.EventError, errorPayload{ID: id, Message: message})
				return
			}
			if r.Status != common.ETransferStatus.Cancelled() {
				c.finalizeLocked(r, common.ETransferStatus.Cancelled(), copyErr.Kind, copyErr.Message)
			}
			c.mu.Unlock()
			c.bus.Publish(common.EventCancelled, id)
			return
		}

		if copyErr.Kind.RetryEligible() && r.RetriesRemaining > 0 {
			r.RetriesRemaining--
			r.Status = common.ETransferStatus.Paused() // held out of the queue during the backoff
			delete(c.cancelFuncs, id)
			delete(c.pauseGates, id)
			c.mu.Unlock()
			c.scheduleRetry(id)
			return
		}

		sourcePath := r.SourcePath
		c.finalizeLocked(r, common.ETransferStatus.Error(), copyErr.Kind, copyErr.Message)
		c.mu.Unlock()
		common.LogToEngineLogWithPrefix(
			fmt.Sprintf("transfer of %s failed (%s): %s", sourcePath, copyErr.Kind, copyErr.Message),
			common.ELogLevel.Error())
		c.bus.Publish(common.EventError, errorPayload{ID: id, Message: copyErr.Message})
		return
	}

	if result.Skipped {
		c.finalizeLocked(r, common.ETransferStatus.Skipped(), common.EErrorKind.None(), "")
		c.mu.Unlock()
		c.bus.Publish(common.EventSkipped, skippedPayload{ID: id, Reason: "target exists with identical size"})
		return
	}

	r.TransferredBytes = result.TotalBytes
	sourcePath, totalBytes := r.SourcePath, result.TotalBytes
	c.finalizeLocked(r, common.ETransferStatus.Completed(), common.EErrorKind.None(), "")
	c.mu.Unlock()
	common.LogToEngineLogWithPrefix(
		fmt.Sprintf("completed %s (%s)", sourcePath, common.ByteSizeToString(totalBytes, false)),
		common.ELogLevel.Info())
	c.bus.Publish(common.EventCompleted, id)
}

// scheduleRetry re-queues a retry-eligible failed transfer after
// cfg.RetryDelay, per §7. It backs off asynchronously so the worker
// that observed the failure is immediately free for other work.
func (c *Coordinator) scheduleRetry(id uuid.UUID) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-time.After(c.cfg.RetryDelay):
		case <-c.stopCh:
			return
		}

		c.mu.Lock()
		rec, ok := c.records[id]
		if !ok || c.stopped || rec.Status.IsTerminal() {
			c.mu.Unlock()
			return
		}
		rec.Status = common.ETransferStatus.Queued()
		rec.ErrorKind = common.EErrorKind.None()
		rec.ErrorMessage = ""
		rec.enqueuedAt = time.Now()
		c.push(rec)
		c.mu.Unlock()
		c.wake()
	}()
}

func fraction(transferred, total int64) float64 {
	if total <= 0 {
		return 1
	}
	return float64(transferred) / float64(total)
}

type startedPayload struct {
	ID       uuid.UUID
	Filename string
}

type progressPayload struct {
	ID               uuid.UUID
	Fraction         float64
	SpeedBytesPerSec float64
	ETASeconds       float64
	Total            int64
	Transferred      int64
}

type errorPayload struct {
	ID      uuid.UUID
	Message string
}

type skippedPayload struct {
	ID     uuid.UUID
	Reason string
}
