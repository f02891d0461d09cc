// Command threaddemo submits a single no-op item to a thread-backed
// queue and waits for it to drain — the minimal smoke test for the
// thread backend.
package main

import (
	"fmt"

	"workqueue"
)

func hello(id int, _ any) {
	fmt.Printf("%04d Hello World!\n", id)
}

func init() {
	workqueue.Register("hello", hello)
}

func main() {
	wq, err := workqueue.New("thread")
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
