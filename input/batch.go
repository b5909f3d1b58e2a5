package input

import (
	"sync"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/memory"
)

// Batch accumulates input events between guest polls.
//
// Callbacks may fire from any goroutine. Only the first pointer move since
// the last flush is kept; every button and key event is kept in arrival
// order. Flush drains the batch atomically with respect to appends.
type Batch struct {
	events  []Event
	origin  [2]int32
	moved   bool
	mu      sync.Mutex
	onFlush func(records int, bytes uint32)
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{events: make([]Event, 0, 32)}
}

// SetOrigin sets the top-left corner of the guest's surface. Pointer
// coordinates are stored relative to it.
func (b *Batch) SetOrigin(x, y int32) {
	b.mu.Lock()
	b.origin = [2]int32{x, y}
	b.mu.Unlock()
}

// OnFlush registers a hook called after every flush that wrote records.
func (b *Batch) OnFlush(fn func(records int, bytes uint32)) {
	b.mu.Lock()
	b.onFlush = fn
	b.mu.Unlock()
}

// PointerMove records a pointer position unless one is already pending.
// It reports whether the move was kept.
func (b *Batch) PointerMove(x, y int32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.moved {
		return false
	}
	b.moved = true
	b.events = append(b.events, Event{Type: EventPointerMove, X: x - b.origin[0], Y: y - b.origin[1]})
	return true
}

// PointerDown records a button press at (x, y).
func (b *Batch) PointerDown(button Button, x, y int32) {
	b.pointerButton(EventPointerDown, button, x, y)
}

// PointerUp records a button release at (x, y).
func (b *Batch) PointerUp(button Button, x, y int32) {
	b.pointerButton(EventPointerUp, button, x, y)
}

func (b *Batch) pointerButton(t EventType, button Button, x, y int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, Event{Type: t, Button: button, X: x - b.origin[0], Y: y - b.origin[1]})
}

// KeyDown records a key press.
func (b *Batch) KeyDown(code int32) {
	b.key(EventKeyDown, code)
}

// KeyUp records a key release.
func (b *Batch) KeyUp(code int32) {
	b.key(EventKeyUp, code)
}

func (b *Batch) key(t EventType, code int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, Event{Type: t, Key: code})
}

// Count returns the number of pending records.
func (b *Batch) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// TotalSize returns the bytes the next flush will write.
func (b *Batch) TotalSize() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint32(len(b.events)) * Stride
}

// Pending returns a copy of the pending records in arrival order.
func (b *Batch) Pending() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Flush writes every pending record to mem, record i at offset+i*Stride,
// and returns the number of bytes written. Each stride slot is zeroed
// before its record is written.
//
// The batch is empty afterwards whether or not the write succeeded. If the
// block does not fit in mem, nothing is written and the records are lost.
func (b *Batch) Flush(mem memory.Memory, offset uint32) (uint32, error) {
	b.mu.Lock()
	events := b.events
	b.events = make([]Event, 0, cap(events))
	b.moved = false
	hook := b.onFlush
	b.mu.Unlock()

	if len(events) == 0 {
		return 0, nil
	}

	total := uint32(len(events)) * Stride
	if err := memory.CheckRange(mem, offset, uint64(total)); err != nil {
		return 0, errors.Wrap(errors.PhaseInput, errors.KindOutOfBounds, err, "flush input batch")
	}

	for i, e := range events {
		at := offset + uint32(i)*Stride
		v, err := e.encode()
		if err != nil {
			return uint32(i) * Stride, err
		}
		if err := memory.Zero(mem, at, Stride); err != nil {
			return uint32(i) * Stride, err
		}
		if err := v.WriteTo(mem, at); err != nil {
			return uint32(i) * Stride, err
		}
	}

	if hook != nil {
		hook(len(events), total)
	}
	return total, nil
}

// Drain empties the batch and returns what was pending, for hosts that
// consume events without a guest memory.
func (b *Batch) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.events
	b.events = make([]Event, 0, cap(events))
	b.moved = false
	return events
}
