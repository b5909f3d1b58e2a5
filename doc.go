// Package hostbridge lets a sandboxed WebAssembly guest use objects owned by
// the Go host.
//
// The guest only sees integers and its own linear memory. The host owns the
// interesting objects (graphics resources, sockets). The packages in this
// module form the boundary between the two:
//
//	hostbridge/        Root package with the Memory and Allocator interfaces
//	├── memory/        Linear memory views (Go buffer, wazero) and allocators
//	├── handle/        Integer handle tables for host objects
//	├── transcoder/    Struct formats and UTF-8 string marshaling
//	├── input/         Batched pointer/keyboard events flushed once per tick
//	├── socket/        WebSocket host delivering events to guest handles
//	├── bridge/        Bridge instance and the wazero "env" host module
//	├── config/        Environment configuration and logger construction
//	├── metrics/       Prometheus collectors for the bridge
//	├── errors/        Structured error types
//	└── cmd/hostbridge Interactive and headless frame driver
//
// # Quick Start
//
//	b := bridge.New(bridge.WithLogger(logger))
//	defer b.Close(ctx)
//
//	if err := b.Instantiate(ctx, guestWasm); err != nil {
//	    log.Fatal(err)
//	}
//
//	// host callbacks, from any goroutine
//	b.OnPointerMove(10, 20)
//	b.OnKeyDown(32)
//
//	// once per tick, on the driver goroutine
//	if err := b.Tick(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Handles
//
// Host objects cross the boundary as small non-negative integers. Each object
// category (texture, shader, socket, ...) has its own handle space. Removed
// handles are recycled lowest-first, so a guest must never use a handle after
// destroying it: lookups of removed handles fail with an invalid_handle error.
//
// # Thread Safety
//
// A Bridge drives a single guest and must be ticked from one goroutine. Host
// callbacks (input, socket events) may fire from any goroutine; they only
// touch mutex-guarded mailboxes that are drained during Tick.
//
// # Memory Model
//
// WASM linear memory can only grow. Growth invalidates byte slices returned
// by earlier reads, never offsets, so the bridge re-reads through the Memory
// interface instead of caching slices.
package hostbridge
