// Package socket gives a guest WebSocket connections named by handles.
//
// Open returns a handle immediately and dials in the background. Network
// callbacks never call into the guest directly: they queue events, and the
// driver delivers them with Dispatch between guest ticks. Close removes the
// handle and discards anything still queued for it, so a closed socket's
// handle never sees another event even if the slot is reused.
package socket
