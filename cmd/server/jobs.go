package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"workqueue"
	"workqueue/internal/deadletter"
	"workqueue/internal/observability"
)

// jobLogger and reportPanic are package-level so registered WorkFuncs
// (wired in init, before main has built the real logger and
// dead-letter store) have something safe to call immediately; main
// upgrades both once its dependencies exist, before bridge.Start().
var (
	jobLogger   = zap.NewNop()
	reportPanic = func(name string, arg any, reason string) {
		fmt.Fprintf(os.Stderr, "workqueue: %s panicked: %s\n", name, reason)
	}
)

// recovered wraps fn so a panic becomes a dead-letter record instead of
// crashing the worker (thread backend) or the re-exec'd child (process
// backend). name is the registered name, reported alongside the
// recovered value.
func recovered(name string, fn workqueue.WorkFunc) workqueue.WorkFunc {
	return func(workerID int, arg any) {
		defer func() {
			if r := recover(); r != nil {
				reportPanic(name, arg, fmt.Sprintf("%v", r))
			}
		}()
		fn(workerID, arg)
	}
}

// echoJob is the service's one built-in work function: it logs the
// argument it was handed. Submitters name it "echo" via the admin API
// or the NATS bridge; a real deployment registers its own named
// functions here the same way, each wrapped in recovered.
func echoJob(workerID int, arg any) {
	jobLogger.Info("echo job executed", zap.Int("worker_id", workerID), zap.Any("arg", arg))
}

func init() {
	workqueue.Register("echo", recovered("echo", echoJob))
}

// installPanicReporter upgrades reportPanic to persist to the
// dead-letter store and bump its counter, once both exist. Only the
// parent process (never a re-exec'd process-backend worker, which
// returns out of main before this runs) reaches this.
func installPanicReporter(store *deadletter.Store, metrics *observability.Metrics) {
	reportPanic = func(name string, arg any, reason string) {
		payload, _ := json.Marshal(arg)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := store.Record(ctx, name, payload, reason); err != nil {
			jobLogger.Error("failed to record dead letter", zap.String("name", name), zap.Error(err))
		}
		metrics.IncDeadLetter()
	}
}
