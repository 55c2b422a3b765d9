package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestQueueDeduplicates(t *testing.T) {
	q := NewQueue(8)

	if !q.Enqueue("/in/a.mp4") {
		t.Fatal("first enqueue must succeed")
	}
	if q.Enqueue("/in/a.mp4") {
		t.Fatal("duplicate enqueue must be a no-op")
	}
	if q.Pending() != 1 {
		t.Fatalf("expected exactly one pending entry, got %d", q.Pending())
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue(8)
	q.Enqueue("/in/a.mp4")
	q.Enqueue("/in/b.mp4")
	q.Enqueue("/in/c.mp4")

	ctx := context.Background()
	for _, want := range []string{"/in/a.mp4", "/in/b.mp4", "/in/c.mp4"} {
		got, ok := q.Dequeue(ctx)
		if !ok || got != want {
			t.Fatalf("dequeue got %q (%v), want %q", got, ok, want)
		}
	}
}

func TestQueueReleaseAllowsRequeue(t *testing.T) {
	q := NewQueue(8)
	q.Enqueue("/in/a.mp4")
	if _, ok := q.Dequeue(context.Background()); !ok {
		t.Fatal("dequeue failed")
	}

	// Still tracked while processing.
	if q.Enqueue("/in/a.mp4") {
		t.Fatal("path must stay de-duplicated while processing")
	}

	q.Release("/in/a.mp4")
	if !q.Enqueue("/in/a.mp4") {
		t.Fatal("released path must be requeueable")
	}
}

func TestDequeueBlocksUntilCancel(t *testing.T) {
	q := NewQueue(8)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := q.Dequeue(ctx); ok {
			t.Error("dequeue must report not-ok on cancellation")
		}
	}()

	select {
	case <-done:
		t.Fatal("dequeue returned before cancellation")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dequeue did not observe cancellation")
	}
}

func TestEnqueueFullBufferRejectsWithoutPoisoningSet(t *testing.T) {
	q := NewQueue(1)
	if !q.Enqueue("/in/a.mp4") {
		t.Fatal("first enqueue must succeed")
	}
	if q.Enqueue("/in/b.mp4") {
		t.Fatal("enqueue into a full buffer must fail")
	}
	// The rejected path must not linger in the de-dup set.
	if _, ok := q.Dequeue(context.Background()); !ok {
		t.Fatal("dequeue failed")
	}
	if !q.Enqueue("/in/b.mp4") {
		t.Fatal("rejected path must be accepted once space frees up")
	}
}
