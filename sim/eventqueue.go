package sim

import (
	"container/heap"
	"sync"
)

// EventQueue keeps events ordered by time.
type EventQueue interface {
	Push(evt Event)
	Pop() Event
	Len() int
	Peek() Event
}

// HeapEventQueue is a thread-safe EventQueue backed by a binary heap.
type HeapEventQueue struct {
	lock   sync.Mutex
	events eventHeap
}

// NewEventQueue creates an empty HeapEventQueue.
func NewEventQueue() *HeapEventQueue {
	q := &HeapEventQueue{events: make(eventHeap, 0)}
	heap.Init(&q.events)

	return q
}

// Push inserts an event.
func (q *HeapEventQueue) Push(evt Event) {
	q.lock.Lock()
	heap.Push(&q.events, evt)
	q.lock.Unlock()
}

// Pop removes and returns the earliest event.
func (q *HeapEventQueue) Pop() Event {
	q.lock.Lock()
	evt := heap.Pop(&q.events).(Event)
	q.lock.Unlock()

	return evt
}

// Len returns the number of queued events.
func (q *HeapEventQueue) Len() int {
	q.lock.Lock()
	l := q.events.Len()
	q.lock.Unlock()

	return l
}

// Peek returns the earliest event without removing it.
func (q *HeapEventQueue) Peek() Event {
	q.lock.Lock()
	evt := q.events[0]
	q.lock.Unlock()

	return evt
}

type eventHeap []Event

func (h eventHeap) Len() int {
	return len(h)
}

func (h eventHeap) Less(i, j int) bool {
	return h[i].Time() < h[j].Time()
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	evt := old[n-1]
	*h = old[:n-1]

	return evt
}
