package common

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusPublishDeliversToAllSubscribers(t *testing.T) {
	b := NewEventBus()
	var mu sync.Mutex
	var got []any

	b.Subscribe(EventStarted, func(p any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, p)
	})
	b.Subscribe(EventStarted, func(p any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, p)
	})

	b.Publish(EventStarted, "payload")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []any{"payload", "payload"}, got)
}

func TestEventBusUnsubscribeStopsDelivery(t *testing.T) {
	b := NewEventBus()
	var count int
	h := b.Subscribe(EventProgress, func(any) { count++ })

	b.Publish(EventProgress, nil)
	b.Unsubscribe(h)
	b.Publish(EventProgress, nil)

	assert.Equal(t, 1, count)
}

func TestEventBusUnsubscribeTwiceIsNoop(t *testing.T) {
	b := NewEventBus()
	h := b.Subscribe(EventProgress, func(any) {})
	b.Unsubscribe(h)
	assert.NotPanics(t, func() { b.Unsubscribe(h) })
}

func TestEventBusChannelsAreIndependent(t *testing.T) {
	b := NewEventBus()
	var startedCount, errorCount int
	b.Subscribe(EventStarted, func(any) { startedCount++ })
	b.Subscribe(EventError, func(any) { errorCount++ })

	b.Publish(EventStarted, nil)

	assert.Equal(t, 1, startedCount)
	assert.Equal(t, 0, errorCount)
}

func TestEventBusDeliversInRegistrationOrder(t *testing.T) {
	b := NewEventBus()
	var mu sync.Mutex
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		b.Subscribe(EventCompleted, func(any) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
		})
	}

	b.Publish(EventCompleted, nil)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
