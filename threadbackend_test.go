package workqueue

import (
	"sync"
	"testing"
	"time"
)

func TestGoroutineIDDistinctPerGoroutine(t *testing.T) {
	const n = 50
	ids := make([]int64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			ids[i] = goroutineID()
		}(i)
	}
	wg.Wait()

	seen := map[int64]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("goroutine id %d observed twice", id)
		}
		seen[id] = true
	}
}

func TestBroadcasterWaitTimesOut(t *testing.T) {
	var mu sync.Mutex
	b := newBroadcaster()

	mu.Lock()
	err := b.wait(&mu, 10*time.Millisecond, defaultClock)
	mu.Unlock()

	if err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestBroadcasterWaitWakesOnBroadcast(t *testing.T) {
	var mu sync.Mutex
	b := newBroadcaster()
	done := make(chan struct{})

	go func() {
		mu.Lock()
		err := b.wait(&mu, time.Second, defaultClock)
		mu.Unlock()
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	b.broadcast()
	mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter never woke after broadcast")
	}
}
