package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait before shutting down OTel providers so
// in-flight async emits can finish. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine with emitTimeout so the caller is not blocked.
// Failures are logged to the global zap logger.
//
// emitter and event may be nil; EmitAsync then returns without starting a goroutine.
// The emit keeps the span of ctx but not its cancellation, so a finished request does not abort it.
func EmitAsync(emitter EventEmitter, ctx context.Context, event *Event) {
	if emitter == nil || event == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	go func() {
		emitCtx, cancel := context.WithTimeout(trace.ContextWithSpanContext(context.Background(), spanCtx), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			zap.L().Warn("telemetry: async emit failed", zap.String("event_type", event.Type), zap.Error(err))
		}
	}()
}
