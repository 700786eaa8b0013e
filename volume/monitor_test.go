package volume

import (
	"sync"
	"testing"
	"time"

	"github.com/geekfreaks/ingestengine/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	mu   sync.Mutex
	vols []RawVolume
}

func (p *fakePort) ListVolumes() ([]RawVolume, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RawVolume, len(p.vols))
	copy(out, p.vols)
	return out, nil
}

func (p *fakePort) set(vols []RawVolume) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vols = vols
}

type eventRecorder struct {
	mu      sync.Mutex
	payload []any
}

func (r *eventRecorder) record(payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payload = append(r.payload, payload)
}

func (r *eventRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payload)
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

func TestMonitorPublishesAttachOnNewVolume(t *testing.T) {
	port := &fakePort{}
	bus := common.NewEventBus()
	attached := &eventRecorder{}
	bus.Subscribe(common.EventVolumeAttached, attached.record)

	m := NewMonitor(port, bus, 15*time.Millisecond, "/")
	m.Start()
	defer m.Stop()

	port.set([]RawVolume{{ID: "card1", MountPoint: "/media/user/CARD01", FSType: "exfat"}})

	waitUntil(t, time.Second, func() bool { return attached.len() == 1 })

	v := attached.payload[0].(Volume)
	assert.Equal(t, "card1", v.ID)
	assert.Equal(t, common.EVolumeClassification.Removable(), v.Classification)
}

func TestMonitorPublishesDetachOnRemoval(t *testing.T) {
	port := &fakePort{}
	port.set([]RawVolume{{ID: "card1", MountPoint: "/media/user/CARD01", FSType: "exfat"}})
	bus := common.NewEventBus()
	detached := &eventRecorder{}
	bus.Subscribe(common.EventVolumeDetached, detached.record)

	m := NewMonitor(port, bus, 15*time.Millisecond, "/")
	m.Start()
	defer m.Stop()

	waitUntil(t, time.Second, func() bool { return len(m.Snapshot()) == 1 })

	port.set(nil)
	waitUntil(t, time.Second, func() bool { return detached.len() == 1 })

	v := detached.payload[0].(Volume)
	assert.Equal(t, "card1", v.ID)
}

func TestMonitorExcludedVolumeNeverPublishes(t *testing.T) {
	port := &fakePort{}
	port.set([]RawVolume{{ID: "card1", MountPoint: "/media/user/CARD01", FSType: "exfat"}})
	bus := common.NewEventBus()
	attached := &eventRecorder{}
	bus.Subscribe(common.EventVolumeAttached, attached.record)

	m := NewMonitor(port, bus, 15*time.Millisecond, "/")
	m.SetExcluded([]string{"card1"})
	m.Start()
	defer m.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, attached.len())

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Excluded)
}

func TestMonitorLabelLookup(t *testing.T) {
	port := &fakePort{}
	port.set([]RawVolume{{ID: "card1", Label: "FOOTAGE", MountPoint: "/media/user/CARD01", FSType: "exfat"}})
	bus := common.NewEventBus()

	m := NewMonitor(port, bus, 15*time.Millisecond, "/")
	m.Start()
	defer m.Stop()

	waitUntil(t, time.Second, func() bool {
		_, ok := m.Label("card1")
		return ok
	})
	label, ok := m.Label("card1")
	assert.True(t, ok)
	assert.Equal(t, "FOOTAGE", label)

	port.set(nil)
	waitUntil(t, time.Second, func() bool {
		_, ok := m.Label("card1")
		return !ok
	})
}
