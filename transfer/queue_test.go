package transfer

import (
	"container/heap"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPriorityQueueOrdersByPriorityThenFIFO(t *testing.T) {
	pq := priorityQueue{}
	heap.Init(&pq)

	low := &queueItem{id: uuid.New(), priority: 0, enqueuedAt: 1}
	high1 := &queueItem{id: uuid.New(), priority: 2, enqueuedAt: 2}
	high2 := &queueItem{id: uuid.New(), priority: 2, enqueuedAt: 3}
	normal := &queueItem{id: uuid.New(), priority: 1, enqueuedAt: 4}

	heap.Push(&pq, low)
	heap.Push(&pq, high2)
	heap.Push(&pq, normal)
	heap.Push(&pq, high1)

	var order []uuid.UUID
	for pq.Len() > 0 {
		item := heap.Pop(&pq).(*queueItem)
		order = append(order, item.id)
	}

	assert.Equal(t, []uuid.UUID{high1.id, high2.id, normal.id, low.id}, order)
}

func TestPriorityQueueRemove(t *testing.T) {
	pq := priorityQueue{}
	heap.Init(&pq)

	a := &queueItem{id: uuid.New(), priority: 1, enqueuedAt: 1}
	b := &queueItem{id: uuid.New(), priority: 1, enqueuedAt: 2}
	heap.Push(&pq, a)
	heap.Push(&pq, b)

	heap.Remove(&pq, a.index)
	assert.Equal(t, 1, pq.Len())

	item := heap.Pop(&pq).(*queueItem)
	assert.Equal(t, b.id, item.id)
}
