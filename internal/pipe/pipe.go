// Package pipe provides the byte-pipe transport the controller uses to
// deliver work items atomically from submitters to workers: a blocking
// write end and a non-blocking read end, backed by a raw kernel pipe
// rather than os.File's runtime-integrated (and therefore
// semantically-blocking) Read/Write path.
package pipe

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock is returned by Read when no data is currently available
// on the read end — the Go spelling of a WOULDBLOCK/EAGAIN read.
var ErrWouldBlock = errors.New("pipe: would block")

// Pipe wraps a pair of raw, unix.Pipe2-created file descriptors. The
// read end is put in non-blocking mode at creation; the write end stays
// blocking, matching a producer that should stall rather than drop an
// item when the pipe is full.
type Pipe struct {
	readFD     int
	writeFD    int
	readClosed bool
	writeClosed bool
}

// New creates a pipe and arms its read end for non-blocking reads.
func New() (*Pipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], 0); err != nil {
		return nil, fmt.Errorf("pipe: create: %w", err)
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return nil, fmt.Errorf("pipe: configure read end: %w", err)
	}
	return &Pipe{readFD: fds[0], writeFD: fds[1]}, nil
}

// FromFDs wraps already-open, already-configured descriptors — used by
// a re-exec'd worker process that inherited the read end via
// exec.Cmd.ExtraFiles instead of creating its own pipe.
func FromFDs(readFD, writeFD int) *Pipe {
	return &Pipe{readFD: readFD, writeFD: writeFD}
}

// ReadFD returns the raw read-end descriptor, for callers that need to
// pass it across a re-exec boundary.
func (p *Pipe) ReadFD() int { return p.readFD }

// WriteFD returns the raw write-end descriptor.
func (p *Pipe) WriteFD() int { return p.writeFD }

// Write performs a single write syscall of buf, relying on the kernel's
// PIPE_BUF atomicity guarantee for writes of that size or smaller.
func (p *Pipe) Write(buf []byte) error {
	n, err := unix.Write(p.writeFD, buf)
	if err != nil {
		return fmt.Errorf("pipe: write: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("pipe: short write: wrote %d of %d bytes", n, len(buf))
	}
	return nil
}

// Read attempts to fill buf completely from a single non-blocking read
// syscall. It returns ErrWouldBlock if no data is currently available,
// and io.EOF-equivalent (via a nil error, n==0 is never returned for a
// live write end) when the write end has been closed and no data
// remains — callers distinguish EOF from WouldBlock via the returned
// error and n.
func (p *Pipe) Read(buf []byte) (int, error) {
	n, err := unix.Read(p.readFD, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return 0, ErrWouldBlock
		}
		return 0, fmt.Errorf("pipe: read: %w", err)
	}
	return n, nil
}

// CloseRead closes the read end. Idempotent.
func (p *Pipe) CloseRead() error {
	if p.readClosed {
		return nil
	}
	p.readClosed = true
	return unix.Close(p.readFD)
}

// CloseWrite closes the write end. Idempotent.
func (p *Pipe) CloseWrite() error {
	if p.writeClosed {
		return nil
	}
	p.writeClosed = true
	return unix.Close(p.writeFD)
}
