package queue

import (
	"sync"

	"replayscraper/pkg/showdown"
)

// Queue is an unordered bag of references shared by discovery sources and
// the resolver. Duplicates are allowed; the store absorbs them.
type Queue struct {
	mu    sync.Mutex
	items []showdown.Reference
}

// New creates an empty queue
func New() *Queue {
	return &Queue{}
}

// Push appends all refs under a single critical section
func (q *Queue) Push(refs ...showdown.Reference) {
	if len(refs) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, refs...)
	q.mu.Unlock()
}

// Pop removes the most recently pushed reference. It reports false when
// the queue is empty and never blocks.
func (q *Queue) Pop() (showdown.Reference, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if n == 0 {
		return showdown.Reference{}, false
	}
	ref := q.items[n-1]
	q.items[n-1] = showdown.Reference{}
	q.items = q.items[:n-1]
	return ref, true
}

// Len returns the current number of queued references
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns everything in the queue
func (q *Queue) Drain() []showdown.Reference {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}
