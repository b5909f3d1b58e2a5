// Package bridge connects a wasm guest to host objects, input and sockets.
//
// A Bridge owns everything one guest can reach: a handle registry, a
// struct format registry, an input batch and a socket host. Instantiate
// links a guest against the "env" host module:
//
//	console_log(ptr, len)
//	handle_drop(category, handle) -> status
//	input_count() -> records
//	input_size() -> bytes
//	input_flush(dest) -> bytes | status
//	socket_create(url_ptr, url_len) -> handle | status
//	socket_send(handle, ptr, len) -> status
//	socket_close(handle, code, reason_ptr, reason_len) -> status
//
// Negative results are Status codes. The guest must export "memory" and,
// to receive strings or socket messages, alloc(size) -> ptr and
// dealloc(ptr, size). Optional exports tick, on_socket_open(h),
// on_socket_message(h, ptr, len), on_socket_close(h) and on_socket_error(h)
// are called from Tick.
//
// # Example
//
//	b := bridge.New(bridge.WithLogger(logger))
//	defer b.Close(ctx)
//	if err := b.Instantiate(ctx, wasmBytes); err != nil {
//		return err
//	}
//	for range ticker.C {
//		if err := b.Tick(ctx); err != nil {
//			return err
//		}
//	}
//
// Input callbacks such as OnPointerMove are safe from any goroutine.
// Everything else, including Tick, belongs to the driver goroutine.
package bridge
