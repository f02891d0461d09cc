package observability

import (
	"go.uber.org/zap"

	"workqueue"
)

// ZapTraceFunc adapts a *zap.Logger into a workqueue.TraceFunc, so
// cmd/server's trace events flow through the same structured logger as
// everything else instead of workqueue.FprintfTrace's plain stdout
// lines.
func ZapTraceFunc(logger *zap.Logger) workqueue.TraceFunc {
	return func(_ any, format string, args ...any) {
		logger.Sugar().Debugf(format, args...)
	}
}
