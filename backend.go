package workqueue

import "time"

// Backend is the abstract capability set a concrete execution strategy
// must satisfy (spec section 4.2). Every method must be implemented;
// a backend with nothing to do for an operation (the thread backend's
// Destroy, for example) implements it as an empty method.
type Backend interface {
	Name() string

	// Init allocates private state, including synchronization
	// primitives and any shared-memory region.
	Init(wq *WorkQueue) error

	// Shutdown sets Shutdown=true, broadcasts the work condition,
	// closes the pipe's read end, and blocks until Current==0. Called
	// with the lock held.
	Shutdown(wq *WorkQueue)

	// Destroy releases private state. For the process backend this
	// detaches the shared segment.
	Destroy(wq *WorkQueue)

	Lock(wq *WorkQueue)
	Unlock(wq *WorkQueue)
	Locked(wq *WorkQueue) bool

	// Submit wakes the workers waiting on the work condition. Both
	// built-in backends wake every waiting worker, not just one; a
	// worker that finds the pipe empty waits again.
	Submit(wq *WorkQueue)

	// Wait blocks on the completion condition until timeout elapses
	// or a completion is signalled. timeout of 0 disables the bound.
	Wait(wq *WorkQueue, timeout time.Duration) error

	// Stat copies the current Stat. Called with the lock held.
	Stat(wq *WorkQueue) Stat

	// WorkerCreate spawns a worker running entry(wq). Called with the
	// lock held; increments Current on success.
	WorkerCreate(wq *WorkQueue, entry func(*WorkQueue)) error

	// WorkerStart increments Available and assigns a stable worker
	// id. Called with the lock held.
	WorkerStart(wq *WorkQueue) int

	// WorkerWait waits on the work condition for the queue's
	// configured timeout.
	WorkerWait(wq *WorkQueue) error

	WorkerIdle(wq *WorkQueue)
	WorkerBusy(wq *WorkQueue)

	// WorkerComplete broadcasts the completion condition.
	WorkerComplete(wq *WorkQueue)

	// WorkerFinish decrements Available and Current and signals the
	// shutdown condition. Called with the lock held.
	WorkerFinish(wq *WorkQueue)

	// Self returns the identity of the currently executing worker:
	// a thread-local id for the thread backend, the OS pid for the
	// process backend, 0 outside any worker.
	Self(wq *WorkQueue) int
}

var backendRegistry []Backend

// RegisterBackend adds a backend to the registry. The first backend
// registered becomes the default chosen by New("").  Backends
// register themselves from an init function in the package that
// implements them.
func RegisterBackend(b Backend) {
	for _, existing := range backendRegistry {
		if existing.Name() == b.Name() {
			return
		}
	}
	backendRegistry = append(backendRegistry, b)
}

func findBackend(name string) Backend {
	if name == "" {
		if len(backendRegistry) == 0 {
			return nil
		}
		return backendRegistry[0]
	}
	for _, b := range backendRegistry {
		if b.Name() == name {
			return b
		}
	}
	return nil
}
