package transfer

import (
	"container/heap"

	"github.com/google/uuid"
)

// queueItem is one entry in the priority queue: just enough to order and
// dequeue, the authoritative TransferRecord lives in the coordinator's map.
type queueItem struct {
	id         uuid.UUID
	priority   int32
	enqueuedAt int64 // UnixNano, used only for FIFO tie-break
	index      int
}

// priorityQueue orders by priority descending (higher enum value wins,
// per §4.2), then by enqueue timestamp ascending (FIFO tie-break).
// container/heap.Pop yields the smallest element under Less, so Less is
// defined to make "wins" sort first.
type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority > pq[j].priority
	}
	return pq[i].enqueuedAt < pq[j].enqueuedAt
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

var _ = heap.Interface(&priorityQueue{})
