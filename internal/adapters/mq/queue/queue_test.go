package queue

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, Record{WinnerID: "a", LoserID: "b"}) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	r := <-q.Dequeue(ctx)
	if r.WinnerID != "a" {
		t.Errorf("expected winner a, got %v", r.WinnerID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_FullQueueDropsWithoutBlocking(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, Record{WinnerID: "1"}) || !q.Enqueue(ctx, Record{WinnerID: "2"}) {
		t.Fatal("expected first two enqueues to succeed")
	}

	done := make(chan bool, 1)
	go func() { done <- q.Enqueue(ctx, Record{WinnerID: "3"}) }()
	select {
	case ok := <-done:
		if ok {
			t.Error("expected enqueue on a full queue to fail")
		}
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if q.Enqueue(ctx, Record{}) {
		t.Error("expected enqueue with cancelled context to fail")
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		q.Enqueue(ctx, Record{WinnerID: id})
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, Record{WinnerID: "late"}) {
		t.Error("expected enqueue after close to fail")
	}

	var got []string
	for r := range q.Dequeue(ctx) {
		got = append(got, r.WinnerID)
	}
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("expected a,b,c drained in order, got %v", got)
	}
}

func TestInMemoryQueue_ConcurrentProducers(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if !q.Enqueue(ctx, Record{}) {
					t.Error("unexpected drop")
					return
				}
			}
		}()
	}
	wg.Wait()
	if l := q.Len(ctx); l != 1000 {
		t.Errorf("expected 1000 queued, got %d", l)
	}
}

func TestInMemoryQueue_DequeueStopsWithContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	for _, id := range []string{"a", "b"} {
		q.Enqueue(context.Background(), Record{WinnerID: id})
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := q.Dequeue(ctx)
	cancel()

	// Nobody reads, so the forwarder can only leave through ctx.
	time.Sleep(20 * time.Millisecond)
	select {
	case _, ok := <-out:
		if ok {
			t.Fatal("expected no delivery after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue goroutine still blocked after cancel")
	}
	if l := q.Len(context.Background()); l < 1 {
		t.Errorf("expected at most one record to leave the queue, %d left", l)
	}
}
