package workqueue

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"time"
)

func init() {
	RegisterBackend(&threadBackend{})
}

// broadcaster is a close-channel-as-condvar: wait snapshots the current
// channel while the caller holds mu, releases mu, and blocks on either
// the channel closing (a signal/broadcast happened) or the clock's
// After firing (timeout). broadcast must be called with mu held.
type broadcaster struct {
	ch chan struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{ch: make(chan struct{})}
}

// broadcast wakes every current waiter. Must be called with the owning
// mutex held.
func (b *broadcaster) broadcast() {
	close(b.ch)
	b.ch = make(chan struct{})
}

// wait blocks until broadcast is called or timeout elapses (0 means no
// timeout). mu must be held on entry and is held again on return.
func (b *broadcaster) wait(mu *sync.Mutex, timeout time.Duration, clock Clock) error {
	ch := b.ch
	mu.Unlock()
	defer mu.Lock()

	if timeout <= 0 {
		<-ch
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-clock.After(timeout):
		return ErrTimeout
	}
}

type threadState struct {
	mu           sync.Mutex
	workCond     *broadcaster
	completeCond *broadcaster
	shutdownCond *broadcaster
	st           Stat
	n            int

	idMu sync.Mutex
	ids  map[int64]int // goroutine id -> assigned worker id
}

// threadBackend runs workers as goroutines sharing process memory.
type threadBackend struct{}

func (*threadBackend) Name() string { return "thread" }

func (*threadBackend) Init(wq *WorkQueue) error {
	wq.private = &threadState{
		workCond:     newBroadcaster(),
		completeCond: newBroadcaster(),
		shutdownCond: newBroadcaster(),
		ids:          map[int64]int{},
	}
	return nil
}

func (b *threadBackend) state(wq *WorkQueue) *threadState {
	return wq.private.(*threadState)
}

func (b *threadBackend) Lock(wq *WorkQueue)   { b.state(wq).mu.Lock() }
func (b *threadBackend) Unlock(wq *WorkQueue) { b.state(wq).mu.Unlock() }

func (b *threadBackend) Locked(wq *WorkQueue) bool {
	s := b.state(wq)
	if s.mu.TryLock() {
		s.mu.Unlock()
		return false
	}
	return true
}

func (b *threadBackend) Shutdown(wq *WorkQueue) {
	s := b.state(wq)
	s.st.Shutdown = true
	s.workCond.broadcast()
	wq.closeReadEnd()
	for s.st.Current > 0 {
		_ = s.shutdownCond.wait(&s.mu, 0, wq.clock)
	}
}

func (b *threadBackend) Destroy(wq *WorkQueue) {}

func (b *threadBackend) Submit(wq *WorkQueue) {
	b.state(wq).workCond.broadcast()
}

func (b *threadBackend) Wait(wq *WorkQueue, timeout time.Duration) error {
	s := b.state(wq)
	return s.completeCond.wait(&s.mu, timeout, wq.clock)
}

func (b *threadBackend) Stat(wq *WorkQueue) Stat {
	return b.state(wq).st
}

func (b *threadBackend) WorkerCreate(wq *WorkQueue, entry func(*WorkQueue)) error {
	s := b.state(wq)
	go entry(wq)
	s.st.Current++
	return nil
}

func (b *threadBackend) WorkerStart(wq *WorkQueue) int {
	s := b.state(wq)
	s.st.Available++
	s.n++
	id := s.n
	s.idMu.Lock()
	s.ids[goroutineID()] = id
	s.idMu.Unlock()
	return id
}

func (b *threadBackend) WorkerWait(wq *WorkQueue) error {
	s := b.state(wq)
	return s.workCond.wait(&s.mu, wq.timeout, wq.clock)
}

func (b *threadBackend) WorkerIdle(wq *WorkQueue) { b.state(wq).st.Available++ }
func (b *threadBackend) WorkerBusy(wq *WorkQueue) { b.state(wq).st.Available-- }

func (b *threadBackend) WorkerComplete(wq *WorkQueue) {
	b.state(wq).completeCond.broadcast()
}

func (b *threadBackend) WorkerFinish(wq *WorkQueue) {
	s := b.state(wq)
	s.st.Available--
	s.st.Current--
	s.idMu.Lock()
	delete(s.ids, goroutineID())
	s.idMu.Unlock()
	s.shutdownCond.broadcast()
}

func (b *threadBackend) Self(wq *WorkQueue) int {
	s := b.state(wq)
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return s.ids[goroutineID()]
}

// goroutineID substitutes for thread-local storage: Go deliberately
// exposes no goroutine identity, so the worker's assigned id is keyed
// by the id parsed out of its own runtime.Stack header. It is only
// ever read by the same goroutine that wrote it in WorkerStart, so the
// parse cost (paid once per Self call, never on the item-dispatch hot
// path) is the only downside.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]
	id, _ := strconv.ParseInt(string(b), 10, 64)
	return id
}
