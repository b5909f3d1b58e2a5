package bridge

import (
	"context"
	"os"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/handle"
	"github.com/wippyai/hostbridge/memory"
)

// Guest exports the bridge calls when present.
const (
	ExportTick          = "tick"
	ExportSocketOpen    = "on_socket_open"
	ExportSocketMessage = "on_socket_message"
	ExportSocketClose   = "on_socket_close"
	ExportSocketError   = "on_socket_error"
)

type guestExports struct {
	tick          api.Function
	socketOpen    api.Function
	socketMessage api.Function
	socketClose   api.Function
	socketError   api.Function
}

// Instantiate compiles and instantiates a guest against this bridge's env
// host module, then binds the guest's memory and allocator.
func (b *Bridge) Instantiate(ctx context.Context, wasmBytes []byte) error {
	if b.guest != nil {
		return errors.New(errors.PhaseLoad, errors.KindDuplicate).
			Detail("bridge already has a guest").
			Build()
	}

	if b.runtime == nil {
		cfg := wazero.NewRuntimeConfig()
		if b.memoryLimit > 0 {
			cfg = cfg.WithMemoryLimitPages(b.memoryLimit)
		}
		b.runtime = wazero.NewRuntimeWithConfig(ctx, cfg)
		b.ownsRuntime = true
	}

	compiled, err := b.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "compile guest")
	}

	// Modules linked for this guest are unwound if it fails to come up,
	// so a retry reports its own error.
	var linked []api.Closer
	unwind := func() {
		for i := len(linked) - 1; i >= 0; i-- {
			_ = linked[i].Close(ctx)
		}
		_ = compiled.Close(ctx)
	}

	if b.wasi && b.runtime.Module(wasi_snapshot_preview1.ModuleName) == nil {
		wasi, err := wasi_snapshot_preview1.Instantiate(ctx, b.runtime)
		if err != nil {
			unwind()
			return errors.Instantiation(err)
		}
		linked = append(linked, wasi)
	}
	env, err := b.hostModule().Instantiate(ctx)
	if err != nil {
		unwind()
		return errors.Instantiation(err)
	}
	linked = append(linked, env)

	modCfg := wazero.NewModuleConfig().WithName("guest")
	if b.wasi {
		modCfg = modCfg.WithStdout(os.Stdout).WithStderr(os.Stderr)
	}
	guest, err := b.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		unwind()
		return errors.Instantiation(err)
	}
	if err := b.bind(guest); err != nil {
		unwind()
		return err
	}
	b.linked = linked
	return nil
}

func (b *Bridge) bind(guest api.Module) error {
	mem := memory.FromModule(guest)
	if mem == nil {
		_ = guest.Close(context.Background())
		return errors.NotFound(errors.PhaseLoad, "export", memory.MemoryExport)
	}

	b.guest = guest
	b.mem = mem
	b.exports = guestExports{
		tick:          guest.ExportedFunction(ExportTick),
		socketOpen:    guest.ExportedFunction(ExportSocketOpen),
		socketMessage: guest.ExportedFunction(ExportSocketMessage),
		socketClose:   guest.ExportedFunction(ExportSocketClose),
		socketError:   guest.ExportedFunction(ExportSocketError),
	}

	alloc, err := memory.NewGuestAllocator(guest, memory.DefaultAllocatorExports, b.logger)
	if err != nil {
		// Guests that never receive strings or messages need no allocator.
		b.logger.Debug("guest allocator unavailable", zap.Error(err))
		b.alloc = nil
	} else {
		b.alloc = alloc
	}

	b.logger.Info("guest instantiated",
		zap.Uint32("memory_bytes", mem.Size()),
		zap.Bool("tick", b.exports.tick != nil),
		zap.Bool("allocator", b.alloc != nil))
	return nil
}

// Guest returns the instantiated guest module, or nil.
func (b *Bridge) Guest() api.Module { return b.guest }

func (b *Bridge) setContext(ctx context.Context) {
	if ga, ok := b.alloc.(*memory.GuestAllocator); ok {
		ga.SetContext(ctx)
	}
}

// Tick runs one guest frame: queued socket events are delivered to the
// guest's socket exports, then the guest's tick export is called. The guest
// pulls input itself through input_flush.
func (b *Bridge) Tick(ctx context.Context) error {
	start := time.Now()
	b.setContext(ctx)
	defer b.setContext(nil)

	sink := &guestSink{b: b, ctx: ctx}
	b.sockets.Dispatch(sink)
	if sink.err != nil {
		return sink.err
	}

	if b.exports.tick != nil {
		_, err := b.exports.tick.Call(ctx)
		b.observeCall(ExportTick, err)
		if err != nil {
			return errors.Wrap(errors.PhaseHost, errors.KindIO, err, "guest tick")
		}
	}

	if b.metrics != nil {
		b.metrics.TickDuration.Observe(time.Since(start).Seconds())
	}
	return nil
}

func (b *Bridge) observeCall(export string, err error) {
	if b.metrics != nil {
		b.metrics.ObserveCall(export, err)
	}
	if err != nil {
		b.logger.Warn("guest call failed", zap.String("export", export), zap.Error(err))
	}
}

// guestSink delivers socket events into guest exports. The first guest
// trap stops delivery of the remaining events for this tick.
type guestSink struct {
	b   *Bridge
	ctx context.Context
	err error
}

func (s *guestSink) call(export string, fn api.Function, params ...uint64) {
	if s.err != nil || fn == nil {
		return
	}
	_, err := fn.Call(s.ctx, params...)
	s.b.observeCall(export, err)
	if err != nil {
		s.err = errors.Wrap(errors.PhaseSocket, errors.KindIO, err, export)
	}
}

func (s *guestSink) OnSocketOpen(h handle.Handle) {
	s.call(ExportSocketOpen, s.b.exports.socketOpen, uint64(h))
}

// OnSocketMessage copies data into a fresh guest allocation for the
// duration of the call and frees it afterwards.
func (s *guestSink) OnSocketMessage(h handle.Handle, data []byte) {
	fn := s.b.exports.socketMessage
	if s.err != nil || fn == nil {
		return
	}
	if len(data) == 0 {
		s.call(ExportSocketMessage, fn, uint64(h), 0, 0)
		return
	}

	size := uint32(len(data))
	ptr, err := s.b.Alloc(size)
	if err != nil {
		s.b.logger.Warn("dropping socket message", zap.Uint32("handle", uint32(h)), zap.Error(err))
		return
	}
	defer s.b.Dealloc(ptr, size)

	if err := s.b.mem.Write(ptr, data); err != nil {
		s.err = err
		return
	}
	s.call(ExportSocketMessage, fn, uint64(h), uint64(ptr), uint64(size))
}

func (s *guestSink) OnSocketClose(h handle.Handle) {
	s.call(ExportSocketClose, s.b.exports.socketClose, uint64(h))
}

func (s *guestSink) OnSocketError(h handle.Handle, err error) {
	s.b.logger.Debug("socket error", zap.Uint32("handle", uint32(h)), zap.Error(err))
	s.call(ExportSocketError, s.b.exports.socketError, uint64(h))
}

// Close shuts down sockets, drops every live handle and releases the guest
// and any runtime the bridge created.
func (b *Bridge) Close(ctx context.Context) error {
	_ = b.sockets.Shutdown()
	_ = b.handles.Close()

	var err error
	if b.guest != nil {
		err = b.guest.Close(ctx)
		b.guest = nil
	}
	for i := len(b.linked) - 1; i >= 0; i-- {
		_ = b.linked[i].Close(ctx)
	}
	b.linked = nil
	if b.ownsRuntime && b.runtime != nil {
		if cerr := b.runtime.Close(ctx); err == nil {
			err = cerr
		}
		b.runtime = nil
	}
	b.mem = nil
	b.alloc = nil
	return err
}
