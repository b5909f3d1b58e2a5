package socket

import "github.com/wippyai/hostbridge/handle"

// EventType identifies a socket notification.
type EventType uint8

const (
	EventOpen EventType = iota
	EventMessage
	EventClose
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a queued socket notification. Ref pins the event to the
// connection that produced it; if the handle has been closed or recycled
// by dispatch time, the event is discarded.
type Event struct {
	Err  error
	Data []byte
	Ref  handle.Ref
	Type EventType
}

// Sink receives socket notifications on the dispatching goroutine.
type Sink interface {
	OnSocketOpen(h handle.Handle)
	OnSocketMessage(h handle.Handle, data []byte)
	OnSocketClose(h handle.Handle)
	OnSocketError(h handle.Handle, err error)
}
