package process

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileLock is the cross-process mutex: a flock(2) advisory lock on a
// dedicated lock file, opened independently by path in every process.
// flock locks belong to the open-file-description, not the path or the
// process, so a descriptor inherited across a fork+exec would already
// be "held" in the child too — wrong for mutual exclusion. Reopening
// by path instead gives every process its own open-file-description
// and therefore correct, independent lock acquisition.
type fileLock struct {
	path string
	file *os.File
}

func newFileLock() (*fileLock, error) {
	f, err := os.CreateTemp("", "workqueue-lock-*")
	if err != nil {
		return nil, fmt.Errorf("process: create lock file: %w", err)
	}
	return &fileLock{path: f.Name(), file: f}, nil
}

func openFileLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("process: open lock file: %w", err)
	}
	return &fileLock{path: path, file: f}, nil
}

func (l *fileLock) Lock() {
	unix.Flock(int(l.file.Fd()), unix.LOCK_EX)
}

func (l *fileLock) Unlock() {
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
}

// Locked reports whether some open-file-description currently holds
// the exclusive lock, by attempting to take it through a brand new
// descriptor on the same path. Mirrors pthread_mutex_trylock's use in
// the C backend to implement `locked` without disturbing an existing
// hold.
func (l *fileLock) Locked() bool {
	f, err := os.OpenFile(l.path, os.O_RDWR, 0)
	if err != nil {
		return false
	}
	defer f.Close()

	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return true
	}
	unix.Flock(fd, unix.LOCK_UN)
	return false
}

func (l *fileLock) close() error {
	return l.file.Close()
}
