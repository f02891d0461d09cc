package workqueue

import "errors"

// Error kinds surfaced by the controller, per spec section 7.
var (
	// ErrInvalidArgument is returned by Submit for a nil queue, an empty
	// or unregistered work name, or an argument that cannot be encoded.
	ErrInvalidArgument = errors.New("workqueue: invalid argument")

	// ErrInvalidBackend is returned by New when the requested backend
	// name is not registered.
	ErrInvalidBackend = errors.New("workqueue: invalid backend")

	// ErrNotLocked is returned by Wait when called without the queue
	// lock held.
	ErrNotLocked = errors.New("workqueue: not locked")

	// ErrIOError wraps a pipe creation, configuration, or write failure.
	// A pipe read failure inside a worker is traced and ends that
	// worker; it is not returned to any caller.
	ErrIOError = errors.New("workqueue: i/o error")

	// ErrTimeout is returned when a condition wait elapses without
	// being signalled.
	ErrTimeout = errors.New("workqueue: timeout")

	// ErrBackendInit wraps a backend-specific allocation or
	// primitive-initialization failure.
	ErrBackendInit = errors.New("workqueue: backend init failed")

	// ErrPayloadTooLarge is returned by Submit when the encoded
	// argument does not fit the wire item's fixed payload.
	ErrPayloadTooLarge = errors.New("workqueue: payload exceeds item capacity")
)
