// Command hello is the flagship example: it submits ten items to a
// thread-backed queue, drains it, then repeats against a process-backed
// queue, optionally tracing every lock/submit/dispatch event to
// stdout. Each item sleeps a second before printing, so a drain that
// finishes in roughly (10/max_workers) seconds rather than ten
// demonstrates the pool actually grew past a single worker.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"workqueue"
	"workqueue/process"
)

func hello(id int, arg any) {
	n, _ := arg.(int)
	time.Sleep(time.Second)
	fmt.Printf("%04d Hello World! (%d)\n", id, n)
}

func init() {
	workqueue.Register("hello", hello)
}

func run(backend string) error {
	fmt.Printf(" *** Using %q backend. ***\n", backend)

	wq, err := workqueue.New(backend)
	if err != nil {
		return fmt.Errorf("workqueue.New(%s): %w", backend, err)
	}

	for i := 0; i < 10; i++ {
		if err := wq.Submit("hello", i+1); err != nil {
			return fmt.Errorf("submit(%s#%d): %w", backend, i, err)
		}
	}

	wq.Lock()
	for !wq.Idle() {
		wq.Wait(0)
	}
	wq.Unlock()

	wq.Destroy()
	return nil
}

func main() {
	if process.MaybeRunWorker() {
		return
	}

	trace := flag.Bool("t", false, "enable event tracing to stdout")
	flag.Parse()

	if *trace {
		workqueue.Trace(workqueue.FprintfTrace(os.Stdout), nil)
	}

	if err := run("thread"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run("process"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if !*trace {
		fmt.Println(" *** Consider re-running this example with tracing enabled [-t]. ***")
	}
}
