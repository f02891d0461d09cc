package process

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"workqueue"
)

// Environment variables a re-exec'd worker reads to reconstruct the
// controller it belongs to. The sentinel's presence is what
// distinguishes a worker invocation of the binary from a normal one.
const (
	envSentinel       = "_WORKQUEUE_PROCESS_WORKER"
	envShmPath        = "_WORKQUEUE_SHM_PATH"
	envLockPath       = "_WORKQUEUE_LOCK_PATH"
	envMaxWorkers     = "_WORKQUEUE_MAX_WORKERS"
	envTimeoutSeconds = "_WORKQUEUE_TIMEOUT_SECONDS"
)

// childPipeFD is the descriptor number a worker's inherited pipe read
// end lands on: fd 3, the first slot after stdin/stdout/stderr, since
// every spawnWorker call passes exactly one entry in ExtraFiles.
const childPipeFD = 3

func selfPID() int { return os.Getpid() }

// spawnWorker re-execs the current binary with the sentinel
// environment set, the pipe's read end inherited as fd 3, and the
// shared-region/lock-file paths passed through the environment. This
// is the fork+exec substitute for the C backend's bare fork: Go cannot
// safely fork a multi-threaded runtime, so a "child" here is a fresh
// process image running the same binary from the top, not a cloned
// address space.
func spawnWorker(wq *workqueue.WorkQueue, s *processState) error {
	dupFD, err := unix.Dup(wq.PipeReadFD())
	if err != nil {
		return fmt.Errorf("process: dup pipe read end: %w", err)
	}
	readFile := os.NewFile(uintptr(dupFD), "workqueue-pipe-read")

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{readFile}
	cmd.Env = append(os.Environ(),
		envSentinel+"=1",
		envShmPath+"="+s.region.path,
		envLockPath+"="+s.lock.path,
		fmt.Sprintf("%s=%d", envMaxWorkers, wq.MaxWorkers()),
		fmt.Sprintf("%s=%d", envTimeoutSeconds, int(wq.Timeout().Seconds())),
	)

	if err := cmd.Start(); err != nil {
		readFile.Close()
		return fmt.Errorf("process: spawn worker: %w", err)
	}
	// The child has its own copy of fd 3 now; this process doesn't need
	// the duplicate any more.
	readFile.Close()
	return nil
}

// MaybeRunWorker is the process-backend half of worker startup: call it
// as the first statement of main() in any binary that may use the
// "process" backend. If this process is a re-exec'd worker (the
// sentinel environment variable is set), it reconstructs a WorkQueue
// pointed at the original process's shared region, lock file and
// inherited pipe, runs the standard worker loop to completion, and
// terminates the process with exit status 0 — mirroring the C
// backend's forked child, which runs the entry point and calls
// exit(0). It never returns in that case. If the sentinel is absent,
// it returns false immediately and the caller's main() continues
// normally.
func MaybeRunWorker() bool {
	if os.Getenv(envSentinel) != "1" {
		return false
	}

	region, err := attachSharedRegion(os.Getenv(envShmPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	lock, err := openFileLock(os.Getenv(envLockPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	maxWorkers, _ := strconv.Atoi(os.Getenv(envMaxWorkers))
	timeoutSeconds, _ := strconv.Atoi(os.Getenv(envTimeoutSeconds))

	wq := workqueue.Attach(&processBackend{}, childPipeFD, uint32(maxWorkers), time.Duration(timeoutSeconds)*time.Second, nil)
	wq.SetPrivate(&processState{region: region, lock: lock, owner: false})

	workqueue.RunWorkerLoop(wq)
	os.Exit(0)
	return true
}
