package game

import (
	"cc-bridge/protocol"
	"container/list"
	"sync"
)

// DefaultRetryLimit bounds the number of results waiting to be replayed.
const DefaultRetryLimit = 256

// RetryQueue holds results the game asked to retry. New results go to the front,
// replays are taken from the back, so results are replayed in arrival order.
type RetryQueue struct {
	mu    sync.Mutex
	items *list.List
	limit int
}

// NewRetryQueue returns an empty queue. A limit <= 0 means unbounded.
func NewRetryQueue(limit int) *RetryQueue {
	return &RetryQueue{
		items: list.New(),
		limit: limit,
	}
}

// PushFront adds res at the front. When the queue is full the oldest result is
// discarded and returned with dropped set to true.
func (q *RetryQueue) PushFront(res protocol.Result) (oldest protocol.Result, dropped bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items.PushFront(res)
	if q.limit > 0 && q.items.Len() > q.limit {
		oldest = q.items.Remove(q.items.Back()).(protocol.Result)
		dropped = true
	}
	return oldest, dropped
}

// PopBack removes the oldest result.
func (q *RetryQueue) PopBack() (protocol.Result, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	back := q.items.Back()
	if back == nil {
		return protocol.Result{}, false
	}
	return q.items.Remove(back).(protocol.Result), true
}

func (q *RetryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
