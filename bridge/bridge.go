package bridge

import (
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	hostbridge "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/handle"
	"github.com/wippyai/hostbridge/input"
	"github.com/wippyai/hostbridge/metrics"
	"github.com/wippyai/hostbridge/socket"
	"github.com/wippyai/hostbridge/transcoder"
)

// Bridge is one guest's view of the host: its handle tables, its input
// batch, its sockets and its linear memory. Bridges share nothing.
//
// Guest-facing operations and Tick must run on one goroutine. The input
// callbacks (OnPointerMove and friends) may be called from any goroutine.
type Bridge struct {
	id      uuid.UUID
	logger  *zap.Logger
	handles *handle.Registry
	formats *transcoder.FormatRegistry
	strings transcoder.StringCodec
	input   *input.Batch
	sockets *socket.Host
	metrics *metrics.Metrics
	mem     hostbridge.Memory
	alloc   hostbridge.Allocator

	runtime     wazero.Runtime
	ownsRuntime bool
	memoryLimit uint32
	wasi        bool
	guest       api.Module
	linked      []api.Closer
	exports     guestExports
}

// New creates a bridge with no guest attached.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		id:      uuid.New(),
		logger:  Logger(),
		handles: handle.NewRegistry(),
		formats: transcoder.NewFormatRegistry(),
		input:   input.NewBatch(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("bridge", b.id.String()))

	sockOpts := []socket.Option{socket.WithLogger(b.logger.Named("socket"))}
	if b.metrics != nil {
		b.handles.Subscribe(b.metrics)
		b.input.OnFlush(b.metrics.ObserveFlush)
		sockOpts = append(sockOpts, socket.WithMetrics(b.metrics))
	}
	b.sockets = socket.NewHost(b.handles.Table(handle.CategorySocket), sockOpts...)
	return b
}

// ID returns the bridge's unique identifier.
func (b *Bridge) ID() uuid.UUID { return b.id }

// Logger returns the bridge logger.
func (b *Bridge) Logger() *zap.Logger { return b.logger }

// Handles returns the handle registry.
func (b *Bridge) Handles() *handle.Registry { return b.handles }

// Formats returns the struct format registry.
func (b *Bridge) Formats() *transcoder.FormatRegistry { return b.formats }

// Input returns the event batch.
func (b *Bridge) Input() *input.Batch { return b.input }

// Sockets returns the socket host.
func (b *Bridge) Sockets() *socket.Host { return b.sockets }

// Memory returns the bound linear memory, or nil before one is bound.
func (b *Bridge) Memory() hostbridge.Memory { return b.mem }

func (b *Bridge) memory() (hostbridge.Memory, error) {
	if b.mem == nil {
		return nil, errors.NotInitialized(errors.PhaseMemory, "linear memory")
	}
	return b.mem, nil
}

// HandleCreate registers value in category c and returns its handle.
func (b *Bridge) HandleCreate(c handle.Category, value any) (handle.Handle, error) {
	return b.handles.Create(c, value)
}

// HandleGet returns the value bound to h in category c.
func (b *Bridge) HandleGet(c handle.Category, h handle.Handle) (any, error) {
	return b.handles.Get(c, h)
}

// HandleRemove unbinds h in category c and drops its value.
func (b *Bridge) HandleRemove(c handle.Category, h handle.Handle) error {
	if c == handle.CategorySocket {
		return b.sockets.Close(h, 0, "")
	}
	return b.handles.Remove(c, h)
}

// HandleTake unbinds h in category c and hands its value to the caller.
// A taken socket comes back closed.
func (b *Bridge) HandleTake(c handle.Category, h handle.Handle) (any, error) {
	if c == handle.CategorySocket {
		conn, err := b.sockets.Take(h)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return b.handles.Take(c, h)
}

// StructWrite encodes record with the format registered as formatID and
// writes it at dest.
func (b *Bridge) StructWrite(formatID uint32, record transcoder.Record, dest uint32) error {
	mem, err := b.memory()
	if err != nil {
		return err
	}
	f, err := b.formats.Get(formatID)
	if err != nil {
		return err
	}
	v, err := f.Encode(record)
	if err != nil {
		return err
	}
	return v.WriteTo(mem, dest)
}

// StructAlloc allocates guest memory for record and writes it there. The
// guest owns the returned pointer.
func (b *Bridge) StructAlloc(formatID uint32, record transcoder.Record) (uint32, error) {
	mem, err := b.memory()
	if err != nil {
		return 0, err
	}
	f, err := b.formats.Get(formatID)
	if err != nil {
		return 0, err
	}
	v, err := f.Encode(record)
	if err != nil {
		return 0, err
	}
	ptr, err := b.Alloc(v.Size())
	if err != nil {
		return 0, err
	}
	if err := v.WriteTo(mem, ptr); err != nil {
		b.Dealloc(ptr, v.Size())
		return 0, err
	}
	return ptr, nil
}

// StructRead decodes the struct at src with the format registered as formatID.
func (b *Bridge) StructRead(formatID uint32, src uint32) (transcoder.Record, error) {
	mem, err := b.memory()
	if err != nil {
		return nil, err
	}
	f, err := b.formats.Get(formatID)
	if err != nil {
		return nil, err
	}
	return f.Decode(mem, src)
}

// StringDecode reads n bytes of UTF-8 at ptr.
func (b *Bridge) StringDecode(ptr, n uint32) (string, error) {
	mem, err := b.memory()
	if err != nil {
		return "", err
	}
	return b.strings.Decode(mem, ptr, n)
}

// StringDecodeC reads a NUL-terminated string at ptr.
func (b *Bridge) StringDecodeC(ptr uint32) (string, error) {
	mem, err := b.memory()
	if err != nil {
		return "", err
	}
	return b.strings.DecodeC(mem, ptr)
}

// StringEncode copies s into a new guest allocation. The guest owns it.
func (b *Bridge) StringEncode(s string) (ptr, n uint32, err error) {
	mem, err := b.memory()
	if err != nil {
		return 0, 0, err
	}
	if b.alloc == nil && s != "" {
		return 0, 0, errors.NotInitialized(errors.PhaseAlloc, "allocator")
	}
	ptr, n, err = b.strings.Encode(mem, b.alloc, s)
	b.countAllocFailure(err)
	return ptr, n, err
}

// StringEncodeC is StringEncode with a trailing NUL.
func (b *Bridge) StringEncodeC(s string) (ptr, n uint32, err error) {
	mem, err := b.memory()
	if err != nil {
		return 0, 0, err
	}
	if b.alloc == nil {
		return 0, 0, errors.NotInitialized(errors.PhaseAlloc, "allocator")
	}
	ptr, n, err = b.strings.EncodeC(mem, b.alloc, s)
	b.countAllocFailure(err)
	return ptr, n, err
}

// Alloc allocates size bytes of guest memory.
func (b *Bridge) Alloc(size uint32) (uint32, error) {
	if b.alloc == nil {
		return 0, errors.NotInitialized(errors.PhaseAlloc, "allocator")
	}
	ptr, err := b.alloc.Alloc(size)
	b.countAllocFailure(err)
	return ptr, err
}

// Dealloc returns an allocation made by Alloc.
func (b *Bridge) Dealloc(ptr, size uint32) {
	if b.alloc != nil {
		b.alloc.Free(ptr, size)
	}
}

func (b *Bridge) countAllocFailure(err error) {
	if err != nil && b.metrics != nil && stderrors.Is(err, errors.ErrAllocation) {
		b.metrics.AllocFailures.Inc()
	}
}

// InputFlush writes pending input records at dest and returns the number
// of bytes written.
func (b *Bridge) InputFlush(dest uint32) (uint32, error) {
	mem, err := b.memory()
	if err != nil {
		return 0, err
	}
	return b.input.Flush(mem, dest)
}

// InputCount returns the number of pending input records.
func (b *Bridge) InputCount() int { return b.input.Count() }

// InputSize returns the bytes the next InputFlush will write.
func (b *Bridge) InputSize() uint32 { return b.input.TotalSize() }

func (b *Bridge) OnPointerMove(x, y int32) { b.input.PointerMove(x, y) }

func (b *Bridge) OnPointerDown(button input.Button, x, y int32) {
	b.input.PointerDown(button, x, y)
}

func (b *Bridge) OnPointerUp(button input.Button, x, y int32) {
	b.input.PointerUp(button, x, y)
}

func (b *Bridge) OnKeyDown(code int32) { b.input.KeyDown(code) }

func (b *Bridge) OnKeyUp(code int32) { b.input.KeyUp(code) }

// SocketOpen starts a connection to url and returns its handle.
func (b *Bridge) SocketOpen(url string) (handle.Handle, error) {
	return b.sockets.Open(url)
}

// SocketSend sends data on the socket named by h.
func (b *Bridge) SocketSend(h handle.Handle, data []byte) error {
	return b.sockets.Send(h, data)
}

// SocketClose closes the socket named by h. No event for h is delivered
// afterwards.
func (b *Bridge) SocketClose(h handle.Handle, code int, reason string) error {
	return b.sockets.Close(h, code, reason)
}
