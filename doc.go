// Package workqueue implements a general-purpose work queue: producers
// submit named work items and a dynamically-sized pool of workers drains
// them concurrently. Two execution backends are available, selected by
// name at construction time: "thread" runs workers as goroutines sharing
// process memory, "process" runs workers as re-exec'd child processes
// coordinated through a shared-memory segment.
//
// A WorkQueue is not safe for use until New succeeds, and is unusable
// after Destroy returns. Work functions must be registered with Register
// before they can be named in a Submit call.
package workqueue
