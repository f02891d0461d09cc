package workqueue

import (
	"fmt"
	"time"

	"workqueue/internal/pipe"
)

// Defaults for pool sizing and worker idle lifetime.
const (
	DefaultMaxWorkers = 32
	DefaultTimeout    = 10 * time.Second
)

// WorkQueue is the controller: the public façade that owns the pipe and
// a backend's private state, and drives the common worker loop
// regardless of which backend is bound.
type WorkQueue struct {
	backend Backend
	private any // backend-owned state; opaque to the controller

	clock   Clock
	timeout time.Duration

	maxWorkers uint32

	pipe *pipe.Pipe
}

// Option configures a WorkQueue at construction.
type Option func(*WorkQueue)

// WithMaxWorkers overrides DefaultMaxWorkers.
func WithMaxWorkers(n uint32) Option {
	return func(wq *WorkQueue) { wq.maxWorkers = n }
}

// WithTimeout overrides DefaultTimeout, the per-worker idle duration
// after which an idle worker's worker_wait gives up and the worker
// exits.
func WithTimeout(d time.Duration) Option {
	return func(wq *WorkQueue) { wq.timeout = d }
}

// WithClock injects a time source, letting tests substitute
// clockz.NewFakeClock() to control timeout expiry deterministically.
func WithClock(c Clock) Option {
	return func(wq *WorkQueue) { wq.clock = c }
}

// New resolves backendName (empty selects the first registered
// backend), creates the pipe, and initializes the backend. It returns
// ErrInvalidBackend if backendName names no registered backend, or a
// wrapped ErrIOError/ErrBackendInit on setup failure.
func New(backendName string, opts ...Option) (*WorkQueue, error) {
	b := findBackend(backendName)
	if b == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBackend, backendName)
	}

	wq := &WorkQueue{
		backend:    b,
		clock:      defaultClock,
		timeout:    DefaultTimeout,
		maxWorkers: DefaultMaxWorkers,
	}
	for _, opt := range opts {
		opt(wq)
	}

	p, err := pipe.New()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOError, err)
	}
	wq.pipe = p

	if err := b.Init(wq); err != nil {
		p.CloseRead()
		p.CloseWrite()
		return nil, fmt.Errorf("%w: %v", ErrBackendInit, err)
	}
	trace("init backend=%s max_workers=%d timeout=%s", b.Name(), wq.maxWorkers, wq.timeout)
	return wq, nil
}

// Lock acquires the backend mutex.
func (wq *WorkQueue) Lock() { wq.backend.Lock(wq) }

// Unlock releases the backend mutex.
func (wq *WorkQueue) Unlock() { wq.backend.Unlock(wq) }

// Locked reports whether the backend mutex is currently held by any
// goroutine/process. The check is necessarily racy; it exists for
// assertions and tracing, not for control flow.
func (wq *WorkQueue) Locked() bool { return wq.backend.Locked(wq) }

// Stat copies the current Stat. The caller must hold the lock.
func (wq *WorkQueue) Stat() Stat { return wq.backend.Stat(wq) }

// Idle reports available == current. It may be called without the
// lock; the result is then an advisory snapshot.
func (wq *WorkQueue) Idle() bool {
	return wq.backend.Stat(wq).Idle()
}

// Self returns the identity of the currently executing worker: a
// thread-local id for the thread backend, the OS pid for the process
// backend, 0 outside any worker.
func (wq *WorkQueue) Self() int { return wq.backend.Self(wq) }

// MaxWorkers returns the configured worker cap.
func (wq *WorkQueue) MaxWorkers() uint32 { return wq.maxWorkers }

// Timeout returns the configured per-worker idle timeout.
func (wq *WorkQueue) Timeout() time.Duration { return wq.timeout }

// PipeReadFD exposes the raw read-end file descriptor of the
// controller's pipe. It exists for backend implementations outside
// this package (the process backend) that must pass the descriptor
// across a re-exec boundary via os/exec's ExtraFiles; in-package
// backends never need it.
func (wq *WorkQueue) PipeReadFD() int { return wq.pipe.ReadFD() }

// Private returns the opaque per-queue state a Backend implementation
// stashed via SetPrivate. Backend implementations living in this
// package (threadBackend) use the private field directly instead;
// Private/SetPrivate exist so that a Backend implemented in another
// package — the process backend — has a place to keep state the
// controller itself never interprets.
func (wq *WorkQueue) Private() any { return wq.private }

// SetPrivate stores v as the queue's backend-private state.
func (wq *WorkQueue) SetPrivate(v any) { wq.private = v }

// Attach builds a WorkQueue around an already-established backend and
// an inherited pipe read descriptor, without running through New's
// pipe-creation and Backend.Init path. It exists for a re-exec'd
// process-backend worker, which must reconstruct a controller pointed
// at resources the original process already created (a shared-memory
// region, a lock file, the inherited pipe) rather than allocate new
// ones.
func Attach(b Backend, pipeReadFD int, maxWorkers uint32, timeout time.Duration, clock Clock) *WorkQueue {
	if clock == nil {
		clock = defaultClock
	}
	return &WorkQueue{
		backend:    b,
		pipe:       pipe.FromFDs(pipeReadFD, -1),
		maxWorkers: maxWorkers,
		timeout:    timeout,
		clock:      clock,
	}
}

// RunWorkerLoop runs the common worker loop on wq. It is exported so
// that a re-exec'd process-backend worker, running in a separate
// package, can drive the same dispatch logic an in-process goroutine
// worker uses.
func RunWorkerLoop(wq *WorkQueue) { runWorker(wq) }

// Submit rejects a nil queue or empty func name with ErrInvalidArgument.
// Under the lock it may create a new worker if none is idle and the
// pool is below its cap (a failure to create one is traced, not fatal —
// the item still gets written and drained by the existing pool). The
// item is then written to the pipe, and finally the backend is told to
// signal the work condition; the write must land before the signal
// because workers only recheck the pipe after being woken.
func (wq *WorkQueue) Submit(name string, arg any) error {
	if wq == nil || name == "" {
		return ErrInvalidArgument
	}
	if _, ok := lookup(name); !ok {
		return fmt.Errorf("%w: work function %q is not registered", ErrInvalidArgument, name)
	}

	item, err := encodeItem(name, arg)
	if err != nil {
		return err
	}

	wq.Lock()
	st := wq.backend.Stat(wq)
	if st.Available == 0 && st.Current < wq.maxWorkers {
		if err := wq.backend.WorkerCreate(wq, runWorker); err != nil {
			trace("worker_create failed: %v", err)
		}
	}
	wq.Unlock()

	if err := wq.pipe.Write(item.marshal()); err != nil {
		return fmt.Errorf("%w: %v", ErrIOError, err)
	}
	wq.backend.Submit(wq)
	trace("submit name=%s", name)
	return nil
}

// Wait blocks on the completion condition until a completion is
// signalled or timeout elapses (0 disables the bound). The caller must
// already hold the lock, or ErrNotLocked is returned.
func (wq *WorkQueue) Wait(timeout time.Duration) error {
	if !wq.Locked() {
		return ErrNotLocked
	}
	err := wq.backend.Wait(wq, timeout)
	if err != nil {
		return err
	}
	return nil
}

// Destroy acquires the lock, shuts the backend down (which drains every
// worker), closes the pipe's write end, and releases backend state. The
// lock is not released afterwards — by design, matching the documented
// choice that a destroyed queue is unusable.
func (wq *WorkQueue) Destroy() {
	wq.Lock()
	wq.backend.Shutdown(wq)
	wq.pipe.CloseWrite()
	wq.backend.Destroy(wq)
	trace("destroy complete")
}

// closeReadEnd is called by a backend's Shutdown once it has broadcast
// the work condition. Woken workers see Shutdown in getItem before
// reading; a read that does reach the closed descriptor fails, and
// getItem treats that failure as shutdown too.
func (wq *WorkQueue) closeReadEnd() {
	wq.pipe.CloseRead()
}

// CloseReadEnd is the exported form of closeReadEnd, for a Backend
// implemented outside this package.
func (wq *WorkQueue) CloseReadEnd() { wq.closeReadEnd() }

// ClockSource returns the queue's injected time source, for a Backend
// implemented outside this package.
func (wq *WorkQueue) ClockSource() Clock { return wq.clock }

// sentinel values returned by getItem to the worker loop.
type getItemResult int

const (
	itemReady getItemResult = iota
	itemShutdown
	itemTimeout
)

// getItem is called with the lock held. It reads Stat to check for
// shutdown, attempts a non-blocking pipe read of exactly one wire item,
// and on WOULDBLOCK waits on the work condition for the queue's
// configured timeout. It returns with the lock held in every case.
func getItem(wq *WorkQueue) (wireItem, getItemResult) {
	for {
		st := wq.backend.Stat(wq)
		if st.Shutdown {
			return wireItem{}, itemShutdown
		}

		buf := make([]byte, wireItemSize)
		n, err := wq.pipe.Read(buf)
		switch {
		case err == nil && n == 0:
			// write end closed, no data left: treat as shutdown.
			return wireItem{}, itemShutdown
		case err == nil:
			item, decErr := unmarshalWireItem(buf[:n])
			if decErr != nil {
				trace("malformed item discarded: %v", decErr)
				continue
			}
			return item, itemReady
		case err == pipe.ErrWouldBlock:
			if waitErr := wq.backend.WorkerWait(wq); waitErr != nil {
				return wireItem{}, itemTimeout
			}
		default:
			trace("pipe read error: %v", err)
			return wireItem{}, itemShutdown
		}
	}
}

// runWorker is the common worker loop shared by every backend: acquire
// lock, start; loop acquiring an item or exiting on shutdown/timeout;
// run the item's function outside the lock; finish.
func runWorker(wq *WorkQueue) {
	wq.Lock()
	id := wq.backend.WorkerStart(wq)
	wq.Unlock()
	trace("worker %d started", id)

	for {
		wq.Lock()
		item, result := getItem(wq)
		if result != itemReady {
			wq.Unlock()
			break
		}

		wq.backend.WorkerBusy(wq)
		wq.Unlock()

		name, arg, err := decodeItem(&item)
		if err != nil {
			trace("worker %d: decode error: %v", id, err)
		} else if fn, ok := lookup(name); ok {
			fn(id, arg)
		} else {
			trace("worker %d: no registered function %q", id, name)
		}

		wq.Lock()
		wq.backend.WorkerComplete(wq)
		wq.backend.WorkerIdle(wq)
		wq.Unlock()
	}

	wq.Lock()
	wq.backend.WorkerFinish(wq)
	st := wq.backend.Stat(wq)
	wq.Unlock()
	trace("worker %d finished, current=%d available=%d", id, st.Current, st.Available)
}
