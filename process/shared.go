package process

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// sharedState is the process-shared equivalent of the thread backend's
// heap-allocated mutex-guarded state. Every field is read and written
// only while the region's lock file is held, the same way the C
// library's workqueue_process_private_t is only touched under its
// PTHREAD_PROCESS_SHARED mutex — so the fields themselves need no
// atomics, only the external flock discipline in backend.go.
type sharedState struct {
	available uint32
	current   uint32
	shutdown  uint32
	_pad      uint32

	// Generation counters stand in for the three PTHREAD_PROCESS_SHARED
	// condition variables: a waiter records the counter's value before
	// releasing the lock, then polls until it differs.
	workGen     uint64
	completeGen uint64
	shutdownGen uint64
}

const sharedSize = int(unsafe.Sizeof(sharedState{}))

// sharedRegion is an mmap'd, file-backed region of shared memory. It
// substitutes for a System V shmget/shmat segment: same "attach by
// name, detach on destroy" contract, backed by a real temp file instead
// of a kernel shm segment so every process can reattach purely by path
// rather than requiring an inherited descriptor.
type sharedRegion struct {
	path string
	file *os.File
	data []byte
	st   *sharedState
}

func newSharedRegion() (*sharedRegion, error) {
	f, err := os.CreateTemp("", "workqueue-shm-*")
	if err != nil {
		return nil, fmt.Errorf("process: create shared region: %w", err)
	}
	if err := f.Truncate(int64(sharedSize)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("process: size shared region: %w", err)
	}
	return mapRegion(f)
}

func attachSharedRegion(path string) (*sharedRegion, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("process: attach shared region: %w", err)
	}
	return mapRegion(f)
}

func mapRegion(f *os.File) (*sharedRegion, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, sharedSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("process: mmap shared region: %w", err)
	}
	return &sharedRegion{
		path: f.Name(),
		file: f,
		data: data,
		st:   (*sharedState)(unsafe.Pointer(&data[0])),
	}, nil
}

// detach munmaps and closes the region's file, the shmdt equivalent.
// It does not remove the backing file — only the creator's Destroy
// path does that, since a worker process has no business deleting
// state other workers may still be attached to.
func (r *sharedRegion) detach() error {
	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("process: munmap shared region: %w", err)
	}
	return r.file.Close()
}
