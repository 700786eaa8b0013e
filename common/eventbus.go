package common

import "sync"

// EventChannel names the publish channels described in §4.2/§4.6.
// Kept as plain strings (not an enum) because a shell binding a host
// event mechanism (Qt signal, JS EventEmitter, ...) typically maps a
// channel name directly, and the set is open for a shell's own channels.
type EventChannel string

const (
	EventStarted        EventChannel = "started"
	EventProgress        EventChannel = "progress"
	EventCompleted        EventChannel = "completed"
	EventError           EventChannel = "error"
	EventCancelled       EventChannel = "cancelled"
	EventPaused          EventChannel = "paused"
	EventResumed         EventChannel = "resumed"
	EventSkipped         EventChannel = "skipped"
	EventBatchProgress   EventChannel = "batch_progress"
	EventBatchCompleted  EventChannel = "batch_completed"
	EventBatchError      EventChannel = "batch_error"
	EventVolumeAttached  EventChannel = "volume_attached"
	EventVolumeDetached  EventChannel = "volume_detached"
	EventFileFound       EventChannel = "file_found"
)

// EventListener receives a published payload. The payload shape is
// channel-specific (documented alongside each publisher); the bus itself
// is payload-agnostic.
type EventListener func(payload any)

// EventBus is the minimal publish surface of §4.6: named channels,
// thread-safe register/unregister, at-most-once delivery per listener,
// and in-order delivery within a channel. It owns no subsystem and no
// subsystem owns it - the process entry point constructs one and hands a
// reference to every subsystem, which is how the cyclic-reference problem
// named in §9's design notes is broken.
type EventBus struct {
	mu        sync.Mutex
	listeners map[EventChannel]map[int]EventListener
	nextID    int

	// publishMu serializes Publish calls per channel so that delivery
	// order within a channel matches publication order even when two
	// goroutines publish to the same channel concurrently.
	publishMu sync.Map // EventChannel -> *sync.Mutex
}

// NewEventBus returns an empty, ready-to-use bus.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners: make(map[EventChannel]map[int]EventListener),
	}
}

// ListenerHandle identifies a registered listener for later Unsubscribe.
type ListenerHandle struct {
	channel EventChannel
	id      int
}

// Subscribe registers l on channel and returns a handle usable with
// Unsubscribe. Safe to call concurrently with Publish.
func (b *EventBus) Subscribe(channel EventChannel, l EventListener) ListenerHandle {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listeners[channel] == nil {
		b.listeners[channel] = make(map[int]EventListener)
	}
	id := b.nextID
	b.nextID++
	b.listeners[channel][id] = l
	return ListenerHandle{channel: channel, id: id}
}

// Unsubscribe removes a previously registered listener. Safe to call more
// than once; the second call is a no-op.
func (b *EventBus) Unsubscribe(h ListenerHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.listeners[h.channel]; ok {
		delete(m, h.id)
	}
}

// Publish delivers payload to every listener currently registered on
// channel, in the order they were registered. Publish calls on the same
// channel are serialized against each other so cross-goroutine publishers
// cannot interleave deliveries out of enqueue order; calls on different
// channels never block each other.
func (b *EventBus) Publish(channel EventChannel, payload any) {
	muAny, _ := b.publishMu.LoadOrStore(channel, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	b.mu.Lock()
	listeners := make([]EventListener, 0, len(b.listeners[channel]))
	ids := make([]int, 0, len(b.listeners[channel]))
	for id := range b.listeners[channel] {
		ids = append(ids, id)
	}
	// deterministic order by registration id
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	for _, id := range ids {
		listeners = append(listeners, b.listeners[channel][id])
	}
	b.mu.Unlock()

	for _, l := range listeners {
		l(payload)
	}
}
