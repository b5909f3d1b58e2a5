package main

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/hostbridge/bridge"
	"github.com/wippyai/hostbridge/handle"
	"github.com/wippyai/hostbridge/input"
	"github.com/wippyai/hostbridge/memory"
)

// The loopback bump heap is capped below loopbackScratch, where frames
// flush input. A burst that outgrows the scratch area fails the flush
// instead of reaching heap allocations.
const loopbackScratch uint32 = 32 * 1024

const maxNotes = 6

// driver advances one bridge a frame at a time. With a guest, a frame is
// bridge.Tick. Without one the driver plays the guest itself: it flushes
// input into a host buffer, decodes it and delivers socket events to its
// own log.
type driver struct {
	b      *bridge.Bridge
	logger *zap.Logger
	state  *input.State

	loopback bool

	mu          sync.Mutex
	frames      uint64
	lastRecords int
	lastKey     int32
	notes       []string
}

// newDriver instantiates wasm into b, or switches b to loopback when wasm
// is empty.
func newDriver(ctx context.Context, b *bridge.Bridge, wasm []byte, logger *zap.Logger) (*driver, error) {
	d := &driver{b: b, logger: logger, state: input.NewState(), lastKey: -1}
	if len(wasm) == 0 {
		d.loopback = true
		return d, nil
	}
	if err := b.Instantiate(ctx, wasm); err != nil {
		return nil, err
	}
	return d, nil
}

// loopbackOptions gives a bridge a host buffer to stand in for guest memory.
func loopbackOptions(pages, maxPages uint32) []bridge.Option {
	mem := memory.NewBuffer(pages, maxPages)
	return []bridge.Option{bridge.WithMemory(mem, memory.NewBumpAllocator(mem, 0, loopbackScratch))}
}

// Step runs one frame.
func (d *driver) Step(ctx context.Context) error {
	var events []input.Event
	if d.loopback {
		var err error
		if events, err = d.flushLoopback(); err != nil {
			return err
		}
		d.b.Sockets().Dispatch(d)
	} else {
		events = d.b.Input().Pending()
		if err := d.b.Tick(ctx); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Update(events)
	d.frames++
	d.lastRecords = len(events)
	for _, e := range events {
		if e.Type == input.EventKeyDown {
			d.lastKey = e.Key
		}
	}
	return nil
}

func (d *driver) flushLoopback() ([]input.Event, error) {
	n, err := d.b.InputFlush(loopbackScratch)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return input.Decode(d.b.Memory(), loopbackScratch, int(n/input.Stride))
}

func (d *driver) note(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notes = append(d.notes, fmt.Sprintf(format, args...))
	if len(d.notes) > maxNotes {
		d.notes = d.notes[len(d.notes)-maxNotes:]
	}
}

func (d *driver) OnSocketOpen(h handle.Handle) {
	d.note("socket %d open", h)
}

func (d *driver) OnSocketMessage(h handle.Handle, data []byte) {
	d.note("socket %d: %q", h, data)
}

func (d *driver) OnSocketClose(h handle.Handle) {
	d.note("socket %d closed", h)
}

func (d *driver) OnSocketError(h handle.Handle, err error) {
	d.logger.Debug("socket error", zap.Uint32("handle", uint32(h)), zap.Error(err))
	d.note("socket %d error: %v", h, err)
}

// snapshot is what the views render.
type snapshot struct {
	frames   uint64
	records  int
	pending  int
	x, y     int32
	buttons  []input.Button
	lastKey  int32
	handles  int
	loopback bool
	notes    []string
}

func (d *driver) Snapshot() snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := snapshot{
		frames:   d.frames,
		records:  d.lastRecords,
		pending:  d.b.InputCount(),
		lastKey:  d.lastKey,
		handles:  d.b.Handles().Len(),
		loopback: d.loopback,
		notes:    append([]string(nil), d.notes...),
	}
	s.x, s.y = d.state.Pointer()
	for _, btn := range []input.Button{input.ButtonLeft, input.ButtonMiddle, input.ButtonRight} {
		if d.state.ButtonDown(btn) {
			s.buttons = append(s.buttons, btn)
		}
	}
	return s
}
