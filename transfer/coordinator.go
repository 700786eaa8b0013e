package transfer

import (
	"container/heap"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/geekfreaks/ingestengine/common"
	"github.com/geekfreaks/ingestengine/copyengine"
)

// HistorySink is the thin interface a shell implements to persist
// transfer history; the coordinator calls it fire-and-forget on every
// terminal transition and never depends on a concrete store (§1).
type HistorySink interface {
	Record(TransferRecord)
}

// Config bundles the coordinator's tunables, all sourced from
// common.Settings fields of the same meaning (§6).
type Config struct {
	WorkerCount                  int
	BufferSize                   int64
	ChunkSize                    int64
	VerifyMode                   common.VerificationPolicy
	DeleteSourceOnSuccess        bool
	BandwidthLimitBytesPerSecond int64
	RetryCount                   int
	RetryDelay                   time.Duration
	ShutdownTimeout              time.Duration
	SlicePool                    common.ByteSlicePooler
	System                       common.SystemInfo
	History                      HistorySink
}

func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.RetryCount <= 0 {
		c.RetryCount = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 2 * time.Second
	}
	if c.System == nil {
		c.System = common.NewHostSystemInfo()
	}
	return c
}

// Coordinator is the lifecycle owner of every TransferRecord described in
// §4.2: queue manager, worker pool supervisor, event emitter. The
// priority queue and id->record map share a single mutex; workers acquire
// it only at status transitions and dequeue, never while copying, per
// §5's locking discipline.
type Coordinator struct {
	mu       sync.Mutex
	records  map[uuid.UUID]*TransferRecord
	queue    priorityQueue
	queueIdx map[uuid.UUID]*queueItem

	fingerprints *common.ExclusiveStringMap
	fpByID       map[uuid.UUID]string

	pauseGates  map[uuid.UUID]*common.PauseGate
	cancelFuncs map[uuid.UUID]context.CancelFunc

	// pendingCancelKind holds the reason a Running transfer's context was
	// torn down, for runTransfer to finalize with once the copy engine
	// unwinds. A plain Cancel leaves no entry here, so the generic
	// EErrorKind.Cancelled() path still applies for that case.
	pendingCancelKind map[uuid.UUID]common.ErrorKind

	batches map[uuid.UUID]*Batch
	batchOf map[uuid.UUID]uuid.UUID

	bus        *common.EventBus
	sem        *semaphore.Weighted
	pacer      *common.Pacer
	throughput common.CountPerSecond
	cfg        Config

	wakeCh   chan struct{}
	stopCh   chan struct{}
	stopped  bool
	wg       sync.WaitGroup
	rootCtx  context.Context
	rootStop context.CancelFunc
}

// NewCoordinator constructs a Coordinator bound to bus and starts its
// dispatch loop. Call Shutdown to stop it.
func NewCoordinator(bus *common.EventBus, cfg Config) *Coordinator {
	cfg = cfg.withDefaults()
	rootCtx, rootStop := context.WithCancel(context.Background())

	c := &Coordinator{
		records:           make(map[uuid.UUID]*TransferRecord),
		queueIdx:          make(map[uuid.UUID]*queueItem),
		fingerprints:      common.NewExclusiveStringMap(),
		fpByID:            make(map[uuid.UUID]string),
		pauseGates:        make(map[uuid.UUID]*common.PauseGate),
		cancelFuncs:       make(map[uuid.UUID]context.CancelFunc),
		pendingCancelKind: make(map[uuid.UUID]common.ErrorKind),
		batches:           make(map[uuid.UUID]*Batch),
		batchOf:           make(map[uuid.UUID]uuid.UUID),
		bus:               bus,
		sem:               semaphore.NewWeighted(int64(cfg.WorkerCount)),
		pacer:             common.NewPacer(cfg.BandwidthLimitBytesPerSecond),
		throughput:        common.NewCountPerSecond(),
		cfg:               cfg,
		wakeCh:            make(chan struct{}, 1),
		stopCh:            make(chan struct{}),
		rootCtx:           rootCtx,
		rootStop:          rootStop,
	}

	c.wg.Add(1)
	go c.dispatchLoop()

	return c
}

var (
	ErrNotFound     = fmt.Errorf("not_found")
	ErrInvalidState = fmt.Errorf("invalid_state")
	ErrUnknownID    = fmt.Errorf("unknown_id")
)

// Enqueue implements §4.2's enqueue operation, including the
// at-most-once-per-fingerprint guard.
func (c *Coordinator) Enqueue(source, target string, priority common.Priority) (uuid.UUID, error) {
	info, err := os.Stat(source)
	if err != nil {
		return uuid.UUID{}, ErrNotFound
	}

	fp := common.Fingerprint(filepath.Base(source), info.Size())
	if err := c.fingerprints.Add(fp); err != nil {
		return uuid.UUID{}, nil //nolint:nilerr // duplicate fingerprint: no id, no error, per §4.2
	}

	id := uuid.New()
	rec := &TransferRecord{
		ID:               id,
		SourcePath:       source,
		TargetPath:       target,
		TotalBytes:       info.Size(),
		Priority:         priority,
		Status:           common.ETransferStatus.Queued(),
		RetriesRemaining: c.cfg.RetryCount,
		enqueuedAt:       time.Now(),
		fingerprint:      fp,
	}

	c.mu.Lock()
	c.records[id] = rec
	c.fpByID[id] = fp
	c.push(rec)
	c.mu.Unlock()

	c.wake()
	return id, nil
}

// EnqueueBatch implements §4.2's enqueue_batch: a named group of
// (source, target) pairs sharing a batch_id.
func (c *Coordinator) EnqueueBatch(name string, pairs [][2]string, priority common.Priority) (uuid.UUID, []uuid.UUID, error) {
	batchID := uuid.New()
	members := make(map[uuid.UUID]struct{}, len(pairs))
	ids := make([]uuid.UUID, 0, len(pairs))

	for _, p := range pairs {
		id, err := c.Enqueue(p[0], p[1], priority)
		if err != nil {
			continue
		}
		if id == (uuid.UUID{}) {
			continue // duplicate fingerprint, silently skipped like a single enqueue
		}
		members[id] = struct{}{}
		ids = append(ids, id)

		c.mu.Lock()
		c.batchOf[id] = batchID
		if rec, ok := c.records[id]; ok {
			bid := batchID
			rec.BatchID = &bid
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.batches[batchID] = &Batch{
		ID:        batchID,
		Name:      name,
		CreatedAt: time.Now(),
		MemberIDs: members,
		Status:    common.ETransferStatus.Queued(),
	}
	c.mu.Unlock()

	return batchID, ids, nil
}

// Pause implements §4.2's pause operation.
func (c *Coordinator) Pause(id uuid.UUID) error {
	c.mu.Lock()
	rec, ok := c.records[id]
	if !ok {
		c.mu.Unlock()
		return ErrUnknownID
	}
	switch rec.Status {
	case common.ETransferStatus.Queued():
		c.removeFromQueue(id)
		rec.Status = common.ETransferStatus.Paused()
		c.mu.Unlock()
		c.bus.Publish(common.EventPaused, id)
		return nil
	case common.ETransferStatus.Running():
		rec.Status = common.ETransferStatus.Paused()
		gate := c.pauseGates[id]
		c.mu.Unlock()
		if gate != nil {
			gate.Pause()
		}
		c.bus.Publish(common.EventPaused, id)
		return nil
	default:
		c.mu.Unlock()
		return ErrInvalidState
	}
}

// Resume implements §4.2's resume operation: re-queued at its
// original priority.
func (c *Coordinator) Resume(id uuid.UUID) error {
	c.mu.Lock()
	rec, ok := c.records[id]
	if !ok || rec.Status != common.ETransferStatus.Paused() {
		c.mu.Unlock()
		return ErrInvalidState
	}

	gate := c.pauseGates[id]
	if gate != nil {
		// a transfer already Running (chunk loop blocked in the gate) just
		// resumes in place; one that was Queued-then-paused goes back on
		// the queue from zero.
		rec.Status = common.ETransferStatus.Running()
		c.mu.Unlock()
		gate.Resume()
		c.bus.Publish(common.EventResumed, id)
		return nil
	}

	rec.Status = common.ETransferStatus.Queued()
	rec.enqueuedAt = time.Now()
	c.push(rec)
	c.mu.Unlock()
	c.bus.Publish(common.EventResumed, id)
	c.wake()
	return nil
}

// Cancel implements §4.2's cancel operation for any non-terminal id.
func (c *Coordinator) Cancel(id uuid.UUID) {
	c.cancelWithKind(id, common.EErrorKind.Cancelled())
}

func (c *Coordinator) cancelWithKind(id uuid.UUID, kind common.ErrorKind) {
	c.mu.Lock()
	rec, ok := c.records[id]
	if !ok || rec.Status.IsTerminal() {
		c.mu.Unlock()
		return
	}

	switch rec.Status {
	case common.ETransferStatus.Queued(), common.ETransferStatus.Paused():
		c.removeFromQueue(id)
		c.finalizeLocked(rec, common.ETransferStatus.Cancelled(), kind, "cancelled")
		c.mu.Unlock()
		c.bus.Publish(common.EventCancelled, id)
		return
	case common.ETransferStatus.Running():
		if kind != common.EErrorKind.Cancelled() {
			c.pendingCancelKind[id] = kind
		}
		cancel := c.cancelFuncs[id]
		gate := c.pauseGates[id]
		c.mu.Unlock()
		if gate != nil {
			gate.Resume() // unstick a paused-and-running worker so it observes cancellation
		}
		if cancel != nil {
			cancel()
		}
		return
	}
	c.mu.Unlock()
}

// Retry implements §4.2's retry operation: id in Error -> Queued.
func (c *Coordinator) Retry(id uuid.UUID) error {
	c.mu.Lock()
	rec, ok := c.records[id]
	if !ok || rec.Status != common.ETransferStatus.Error() {
		c.mu.Unlock()
		return ErrInvalidState
	}
	rec.Status = common.ETransferStatus.Queued()
	rec.ErrorKind = common.EErrorKind.None()
	rec.ErrorMessage = ""
	rec.TransferredBytes = 0
	rec.enqueuedAt = time.Now()
	c.push(rec)
	c.mu.Unlock()
	c.wake()
	return nil
}

// Throughput reports the coordinator's aggregate bytes/sec across every
// transfer's progress reports, averaged over the time since the coordinator
// was created, for a shell's status bar.
func (c *Coordinator) Throughput() float64 {
	return c.throughput.LatestRate()
}

// Status implements §4.2's status operation.
func (c *Coordinator) Status(id uuid.UUID) (TransferRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok {
		return TransferRecord{}, ErrUnknownID
	}
	return rec.snapshot(), nil
}

// RenameBatch and DescribeBatch are pure metadata operations on a batch's
// display name and description.
func (c *Coordinator) RenameBatch(id uuid.UUID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.batches[id]
	if !ok {
		return ErrUnknownID
	}
	b.Name = name
	return nil
}

func (c *Coordinator) DescribeBatch(id uuid.UUID, description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.batches[id]
	if !ok {
		return ErrUnknownID
	}
	b.Description = description
	return nil
}

// CancelBySourceVolume implements the "volume-detached collateral" rule of
// §5: every Queued or Running transfer whose source resides under
// volumeRoot is cancelled with kind source_volume_detached.
func (c *Coordinator) CancelBySourceVolume(volumeRoot string) {
	rootPrefix := strings.TrimSuffix(volumeRoot, string(filepath.Separator)) + string(filepath.Separator)
	c.mu.Lock()
	var ids []uuid.UUID
	for id, rec := range c.records {
		if rec.Status.IsTerminal() {
			continue
		}
		if rec.SourcePath == volumeRoot || strings.HasPrefix(rec.SourcePath, rootPrefix) {
			ids = append(ids, id)
		}
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.cancelWithKind(id, common.EErrorKind.SourceVolumeDetached())
	}
}

// Shutdown implements §4.2's shutdown: stop flag, drain without
// starting new work, cancel every Running transfer, join workers with a
// bounded timeout.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	var running []uuid.UUID
	for id, rec := range c.records {
		if rec.Status == common.ETransferStatus.Running() {
			running = append(running, id)
		}
	}
	c.mu.Unlock()

	close(c.stopCh)
	for _, id := range running {
		c.Cancel(id)
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.cfg.ShutdownTimeout):
		c.rootStop()
		<-done
	}

	c.pacer.Close()
}

// --- internal plumbing ---

func (c *Coordinator) push(rec *TransferRecord) {
	item := &queueItem{id: rec.ID, priority: int32(rec.Priority), enqueuedAt: rec.enqueuedAt.UnixNano()}
	c.queueIdx[rec.ID] = item
	heap.Push(&c.queue, item)
}

func (c *Coordinator) removeFromQueue(id uuid.UUID) {
	item, ok := c.queueIdx[id]
	if !ok {
		return
	}
	heap.Remove(&c.queue, item.index)
	delete(c.queueIdx, id)
}

func (c *Coordinator) wake() {
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

// finalizeLocked transitions rec to a terminal status, clears bookkeeping,
// and reports history. Caller holds c.mu. Event publication happens after
// unlock at each call site.
func (c *Coordinator) finalizeLocked(rec *TransferRecord, status common.TransferStatus, kind common.ErrorKind, message string) {
	rec.Status = status
	rec.ErrorKind = kind
	rec.ErrorMessage = message
	rec.EndedAt = time.Now()
	delete(c.queueIdx, rec.ID)
	delete(c.cancelFuncs, rec.ID)
	delete(c.pauseGates, rec.ID)
	delete(c.pendingCancelKind, rec.ID)
	if fp, ok := c.fpByID[rec.ID]; ok {
		c.fingerprints.Remove(fp)
		delete(c.fpByID, rec.ID)
	}
	if c.cfg.History != nil {
		go c.cfg.History.Record(rec.snapshot())
	}
	c.updateBatchLocked(rec.ID)
}

func (c *Coordinator) updateBatchLocked(transferID uuid.UUID) {
	batchID, ok := c.batchOf[transferID]
	if !ok {
		return
	}
	b, ok := c.batches[batchID]
	if !ok {
		return
	}

	allTerminal := true
	anyError := false
	for memberID := range b.MemberIDs {
		rec, ok := c.records[memberID]
		if !ok {
			continue
		}
		if !rec.Status.IsTerminal() {
			allTerminal = false
			break
		}
		if rec.Status == common.ETransferStatus.Error() {
			anyError = true
		}
	}

	if !allTerminal {
		go c.bus.Publish(common.EventBatchProgress, batchID)
		return
	}

	if anyError {
		b.Status = common.ETransferStatus.Error()
		go c.bus.Publish(common.EventBatchError, batchID)
	} else {
		b.Status = common.ETransferStatus.Completed()
		go c.bus.Publish(common.EventBatchCompleted, batchID)
	}
}
