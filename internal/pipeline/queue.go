package pipeline

import (
	"context"
	"sync"
)

const defaultQueueCapacity = 64

// Queue is the FIFO buffer between the watcher and the worker. A companion
// set rejects paths that are already queued or still being processed, so a
// file can never be in flight twice. Queue state lives only in memory;
// entries are lost on restart.
type Queue struct {
	mu      sync.Mutex
	queued  map[string]struct{}
	entries chan string
}

// NewQueue builds a queue holding at most capacity pending entries.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &Queue{
		queued:  make(map[string]struct{}),
		entries: make(chan string, capacity),
	}
}

// Enqueue adds path unless it is already queued or processing. The return
// value reports whether the path was accepted; a duplicate is a no-op.
func (q *Queue) Enqueue(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.queued[path]; ok {
		return false
	}

	select {
	case q.entries <- path:
		q.queued[path] = struct{}{}
		return true
	default:
		// Buffer full. Leaving the path out of the set lets a later
		// arrival retry once the worker has drained some entries.
		return false
	}
}

// Dequeue blocks until an entry is available or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case path := <-q.entries:
		return path, true
	}
}

// Release removes path from the de-duplication set. The worker must call
// this after every job, failed or not; a path left in the set could never
// be processed again.
func (q *Queue) Release(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.queued, path)
}

// Pending returns the number of entries waiting in the buffer.
func (q *Queue) Pending() int {
	return len(q.entries)
}
