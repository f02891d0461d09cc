package workqueue

import (
	"fmt"
	"io"
)

// TraceFunc receives one human-readable line per significant event:
// lock/unlock, submit/dispatch, worker lifecycle, errors. Tracing is
// optional and side-effect-only.
type TraceFunc func(ctx any, format string, args ...any)

var (
	traceFunc TraceFunc
	traceCtx  any
)

// Trace installs a process-wide trace sink. Passing a nil func disables
// tracing. The sink is unprotected by any lock; callers must set it
// before concurrent use begins.
func Trace(fn TraceFunc, ctx any) {
	traceFunc = fn
	traceCtx = ctx
}

func trace(format string, args ...any) {
	if traceFunc != nil {
		traceFunc(traceCtx, format, args...)
	}
}

// FprintfTrace is a convenience TraceFunc that writes to any io.Writer
// (a FILE-style stream in spec terms).
func FprintfTrace(w io.Writer) TraceFunc {
	return func(_ any, format string, args ...any) {
		fmt.Fprintf(w, format+"\n", args...)
	}
}
