package process

import (
	"time"

	"workqueue"
)

// pollTick bounds the latency of the generation-counter condvar
// substitute: a waiter notices a signal/broadcast within one tick of
// it happening, not instantly. This changes wakeup latency, never
// correctness — a waiter always compares generations while holding the
// lock, so it can never miss a signal the way a naive unlocked check
// could.
const pollTick = 15 * time.Millisecond

// bump increments the generation counter gen points at. Must be called
// with the region's lock held.
func bump(gen *uint64) {
	*gen++
}

// condWait emulates pthread_cond_(timed)wait against a generation
// counter: it records the counter's current value, releases lock,
// polls until the counter changes or the deadline (if any) passes, and
// always re-acquires lock before returning — matching
// pthread_cond_wait's "returns with the mutex held" contract even on
// ETIMEDOUT.
func condWait(lock *fileLock, gen *uint64, timeout time.Duration, clock workqueue.Clock) error {
	baseline := *gen

	var deadline time.Time
	if timeout > 0 {
		deadline = clock.Now().Add(timeout)
	}

	lock.Unlock()
	for {
		time.Sleep(pollTick)
		lock.Lock()
		if *gen != baseline {
			return nil
		}
		if !deadline.IsZero() && !clock.Now().Before(deadline) {
			return workqueue.ErrTimeout
		}
		lock.Unlock()
	}
}
