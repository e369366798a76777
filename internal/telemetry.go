package internal

import (
	"context"
	"sync"
)

// telemetry.go
// Lightweight telemetry hook layer used by the query engine's plan/lower/
// execute pipeline. This file exposes simple emitter functions the rest
// of the codebase can call. The implementation is intentionally minimal:
// callers may register a real OpenTelemetry emitter (or a test stub) via
// RegisterTelemetryEmitter. By default the emitter is a no-op, avoiding
// any hard dependency on an OTEL SDK in this change set.

type telemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	teleMu   sync.Mutex
	teleImpl telemetryEmitter = func(ctx context.Context, name string, labels map[string]string, value any) {
		// noop by default
	}
)

// RegisterTelemetryEmitter registers a custom emitter function. Callers
// (e.g. engine wiring) can provide an OpenTelemetry-backed emitter or a
// test meter.
func RegisterTelemetryEmitter(fn telemetryEmitter) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

// EmitLatency records a latency measure (milliseconds) for a named query
// stage.
// name: "query_stage_latency_histogram" with label {"stage": "plan"|"lower"|"execute"}
func EmitLatency(ctx context.Context, stage string, ms int64) {
	teleMu.Lock()
	fn := teleImpl
	teleMu.Unlock()
	labels := map[string]string{"stage": stage}
	fn(ctx, "query_stage_latency_histogram", labels, ms)
}

// EmitRowCount records per-stream row counts.
// name: "query_stream_row_count" with label {"stream": "<variable-list-hash or stage id>"}
func EmitRowCount(ctx context.Context, stream string, rows int64) {
	teleMu.Lock()
	fn := teleImpl
	teleMu.Unlock()
	labels := map[string]string{"stream": stream}
	fn(ctx, "query_stream_row_count", labels, rows)
}

// EmitCancellation records a query cancellation at a given stage (batch
// boundary), per spec.md §5's cooperative cancellation contract.
// name: "query_cancellation_total" with label {"stage": "plan"|"lower"|"execute"}
func EmitCancellation(ctx context.Context, stage string) {
	teleMu.Lock()
	fn := teleImpl
	teleMu.Unlock()
	labels := map[string]string{"stage": stage}
	fn(ctx, "query_cancellation_total", labels, int64(1))
}

// EmitGroupCount records the number of groups an aggregate produced, for
// a given group-by plan node id.
// name: "query_aggregate_group_count" with label {"node": "<plan node id>"}
func EmitGroupCount(ctx context.Context, node string, groups int64) {
	teleMu.Lock()
	fn := teleImpl
	teleMu.Unlock()
	labels := map[string]string{"node": node}
	fn(ctx, "query_aggregate_group_count", labels, groups)
}
