package volume

import (
	"fmt"
	"sync"
	"time"

	"github.com/geekfreaks/ingestengine/common"
)

// DefaultPollInterval is §4.3's default volume poll cadence.
const DefaultPollInterval = 1 * time.Second

// Monitor polls PlatformPort on an interval, diffs the result against the
// previous poll, classifies new arrivals, and publishes attach/detach
// events on the shared bus. It never reports the process's own system
// volume as removable, and it honors a caller-supplied exclusion list by
// mountpoint or volume ID.
type Monitor struct {
	port         PlatformPort
	bus          *common.EventBus
	pollInterval time.Duration
	systemRoot   string

	mu       sync.Mutex
	excluded map[string]struct{}
	known    map[string]Volume
	labels   *common.SyncMap

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// NewMonitor builds a Monitor. systemRoot is the mountpoint that must never
// be classified Removable (the volume the engine itself runs from); pass ""
// to skip that guard.
func NewMonitor(port PlatformPort, bus *common.EventBus, pollInterval time.Duration, systemRoot string) *Monitor {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Monitor{
		port:         port,
		bus:          bus,
		pollInterval: pollInterval,
		systemRoot:   systemRoot,
		excluded:     make(map[string]struct{}),
		known:        make(map[string]Volume),
		labels:       common.NewSyncMap(),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Label returns the last-known display label for a volume ID, for shells
// that want a cheap lookup without holding a full Snapshot.
func (m *Monitor) Label(id string) (string, bool) {
	return m.labels.Get(id)
}

// SetExcluded replaces the exclusion list wholesale; entries match against
// either RawVolume.ID or MountPoint.
func (m *Monitor) SetExcluded(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.excluded = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m.excluded[id] = struct{}{}
	}
}

// Snapshot returns the currently known volumes, excluded ones included.
func (m *Monitor) Snapshot() []Volume {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Volume, 0, len(m.known))
	for _, v := range m.known {
		out = append(out, v)
	}
	return out
}

// Start runs the poll loop until Stop is called. It performs one poll
// immediately so callers see the initial volume set without waiting a full
// interval.
func (m *Monitor) Start() {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	go func() {
		defer close(m.doneCh)
		m.poll()
		ticker := time.NewTicker(m.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.poll()
			}
		}
	}()
}

// Stop halts the poll loop and waits for the in-flight poll, if any, to
// finish. On a Monitor that was never started it returns at once.
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if started {
		<-m.doneCh
	}
}

func (m *Monitor) poll() {
	raws, err := m.port.ListVolumes()
	if err != nil {
		return
	}

	m.mu.Lock()
	seen := make(map[string]struct{}, len(raws))
	var attached, detached []Volume

	for _, raw := range raws {
		seen[raw.ID] = struct{}{}
		_, excluded := m.excluded[raw.ID]
		if !excluded {
			_, excluded = m.excluded[raw.MountPoint]
		}

		vol := Volume{
			ID:             raw.ID,
			Label:          raw.Label,
			MountPoint:     raw.MountPoint,
			Classification: classify(raw, m.systemRoot),
			Excluded:       excluded,
		}

		if prev, ok := m.known[raw.ID]; !ok || prev != vol {
			if !ok {
				attached = append(attached, vol)
			}
		}
		m.known[raw.ID] = vol
		m.labels.Set(raw.ID, raw.Label)
	}

	for id, vol := range m.known {
		if _, ok := seen[id]; !ok {
			detached = append(detached, vol)
			delete(m.known, id)
			m.labels.Delete(id)
		}
	}
	m.mu.Unlock()

	if m.bus == nil {
		return
	}
	for _, v := range attached {
		if !v.Excluded {
			common.LogToEngineLogWithPrefix(fmt.Sprintf("volume attached: %s (%s)", v.MountPoint, v.Classification), common.ELogLevel.Info())
			m.bus.Publish(common.EventVolumeAttached, v)
		}
	}
	for _, v := range detached {
		if !v.Excluded {
			common.LogToEngineLogWithPrefix(fmt.Sprintf("volume detached: %s", v.MountPoint), common.ELogLevel.Info())
			m.bus.Publish(common.EventVolumeDetached, v)
		}
	}
}
