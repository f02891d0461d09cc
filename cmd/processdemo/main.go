// Command processdemo is threaddemo's process-backend counterpart: the
// same single-item smoke test, but workers are re-exec'd child
// processes rather than goroutines. Every binary that uses the
// "process" backend must call process.MaybeRunWorker() as the first
// statement of main — in a re-exec'd worker process it runs the worker
// loop and exits the process with status 0, never returning to main.
package main

import (
	"fmt"

	"workqueue"
	"workqueue/process"
)

func hello(id int, _ any) {
	fmt.Printf("%04d Hello World!\n", id)
}

func init() {
	workqueue.Register("hello", hello)
}

func main() {
	if process.MaybeRunWorker() {
		return
	}

	wq, err := workqueue.New("process")
	if err != nil {
		panic(err)
	}

	if err := wq.Submit("hello", nil); err != nil {
		panic(err)
	}

	wq.Lock()
	for !wq.Idle() {
		wq.Wait(0)
	}
	wq.Unlock()

	wq.Destroy()
}
