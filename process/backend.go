// Package process implements the cross-process workqueue backend:
// workers run as re-exec'd child processes coordinated through a
// temp-file-backed mmap'd shared region (in place of System V shared
// memory) and a flock'd lock file (in place of a PTHREAD_PROCESS_SHARED
// mutex). Go cannot fork() safely once its runtime has started more
// than one OS thread, so "spawn a worker" here means fork+exec of the
// current binary rather than a bare fork — see MaybeRunWorker.
package process

import (
	"fmt"
	"os"
	"time"

	"workqueue"
)

func init() {
	workqueue.RegisterBackend(&processBackend{})
}

// processState is the per-queue private state a processBackend stashes
// via WorkQueue.SetPrivate. It is never touched except while holding
// lock, matching the C library's "all fields guarded by the shared
// mutex" discipline.
type processState struct {
	region *sharedRegion
	lock   *fileLock
	owner  bool // true only in the process that ran Init (not a re-exec'd worker)
}

// processBackend is stateless; every queue's real state lives in its
// processState, reached through WorkQueue.Private.
type processBackend struct{}

func (*processBackend) Name() string { return "process" }

func (*processBackend) Init(wq *workqueue.WorkQueue) error {
	region, err := newSharedRegion()
	if err != nil {
		return err
	}
	lock, err := newFileLock()
	if err != nil {
		region.detach()
		return err
	}
	installReaper()
	wq.SetPrivate(&processState{region: region, lock: lock, owner: true})
	return nil
}

func state(wq *workqueue.WorkQueue) *processState {
	return wq.Private().(*processState)
}

func (*processBackend) Lock(wq *workqueue.WorkQueue)   { state(wq).lock.Lock() }
func (*processBackend) Unlock(wq *workqueue.WorkQueue) { state(wq).lock.Unlock() }
func (*processBackend) Locked(wq *workqueue.WorkQueue) bool {
	return state(wq).lock.Locked()
}

func (*processBackend) Shutdown(wq *workqueue.WorkQueue) {
	s := state(wq)
	st := s.region.st
	st.shutdown = 1
	bump(&st.workGen)
	wq.CloseReadEnd()
	for st.current > 0 {
		condWait(s.lock, &st.shutdownGen, 0, wq.ClockSource())
	}
}

func (*processBackend) Destroy(wq *workqueue.WorkQueue) {
	s := state(wq)
	s.region.detach()
	s.lock.close()
	if s.owner {
		removeFile(s.region.path)
		removeFile(s.lock.path)
	}
}

func (*processBackend) Submit(wq *workqueue.WorkQueue) {
	s := state(wq)
	bump(&s.region.st.workGen)
}

func (*processBackend) Wait(wq *workqueue.WorkQueue, timeout time.Duration) error {
	s := state(wq)
	return condWait(s.lock, &s.region.st.completeGen, timeout, wq.ClockSource())
}

func (*processBackend) Stat(wq *workqueue.WorkQueue) workqueue.Stat {
	st := state(wq).region.st
	return workqueue.Stat{
		Available: st.available,
		Current:   st.current,
		Shutdown:  st.shutdown != 0,
	}
}

// WorkerCreate re-execs the current binary as a worker process (see
// MaybeRunWorker). entry is accepted to satisfy the Backend interface
// but is never called directly here: a re-exec'd process starts a
// brand new Go runtime with no relation to this one's heap, so there
// is no func value that could cross that boundary. The child instead
// reconstructs its own WorkQueue from environment variables and the
// inherited pipe descriptor and runs workqueue.RunWorkerLoop itself.
func (*processBackend) WorkerCreate(wq *workqueue.WorkQueue, entry func(*workqueue.WorkQueue)) error {
	s := state(wq)
	if err := spawnWorker(wq, s); err != nil {
		return err
	}
	s.region.st.current++
	return nil
}

func (*processBackend) WorkerStart(wq *workqueue.WorkQueue) int {
	state(wq).region.st.available++
	return selfPID()
}

func (*processBackend) WorkerWait(wq *workqueue.WorkQueue) error {
	s := state(wq)
	return condWait(s.lock, &s.region.st.workGen, wq.Timeout(), wq.ClockSource())
}

func (*processBackend) WorkerIdle(wq *workqueue.WorkQueue) { state(wq).region.st.available++ }
func (*processBackend) WorkerBusy(wq *workqueue.WorkQueue) { state(wq).region.st.available-- }

func (*processBackend) WorkerComplete(wq *workqueue.WorkQueue) {
	bump(&state(wq).region.st.completeGen)
}

func (*processBackend) WorkerFinish(wq *workqueue.WorkQueue) {
	st := state(wq).region.st
	st.available--
	st.current--
	bump(&st.shutdownGen)
}

func (*processBackend) Self(wq *workqueue.WorkQueue) int { return selfPID() }

func removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil {
		fmt.Printf("process: cleanup %s: %v\n", path, err)
	}
}
