package bridge

import (
	"context"
	stderrors "errors"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	hostbridge "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/handle"
	"github.com/wippyai/hostbridge/memory"
)

// HostModule is the import module name guests link against.
const HostModule = "env"

// Status codes returned to the guest by env functions. Functions that
// return a handle or a byte count return a negative status on failure.
const (
	StatusOK                  int32 = 0
	StatusInvalidHandle       int32 = -1
	StatusOutOfBounds         int32 = -2
	StatusUnsupportedEncoding int32 = -3
	StatusAllocation          int32 = -4
	StatusClosed              int32 = -5
	StatusError               int32 = -6
)

// Status maps an error to the code a guest sees.
func Status(err error) int32 {
	var e *errors.Error
	if err == nil {
		return StatusOK
	}
	if !stderrors.As(err, &e) {
		return StatusError
	}
	switch {
	case stderrors.Is(err, errors.ErrInvalidHandle):
		return StatusInvalidHandle
	case stderrors.Is(err, errors.ErrOutOfBounds):
		return StatusOutOfBounds
	case stderrors.Is(err, errors.ErrUnsupportedEncoding):
		return StatusUnsupportedEncoding
	case stderrors.Is(err, errors.ErrAllocation):
		return StatusAllocation
	case stderrors.Is(err, errors.ErrClosed):
		return StatusClosed
	default:
		return StatusError
	}
}

var (
	i32    = api.ValueTypeI32
	none   = []api.ValueType{}
	oneI   = []api.ValueType{i32}
	twoI   = []api.ValueType{i32, i32}
	threeI = []api.ValueType{i32, i32, i32}
	fourI  = []api.ValueType{i32, i32, i32, i32}
)

type hostFunc struct {
	name    string
	fn      api.GoModuleFunc
	params  []api.ValueType
	results []api.ValueType
}

// guestMemory returns the bridge memory, falling back to the caller's
// memory for calls made before binding (from the guest's start function).
func (b *Bridge) guestMemory(mod api.Module) hostbridge.Memory {
	if b.mem != nil {
		return b.mem
	}
	if m := memory.FromModule(mod); m != nil {
		return m
	}
	return nil
}

func (b *Bridge) status(name string, err error) int32 {
	if err != nil {
		b.logger.Debug("host call failed", zap.String("func", name), zap.Error(err))
	}
	return Status(err)
}

func (b *Bridge) hostFuncs() []hostFunc {
	return []hostFunc{
		{
			name:   "console_log",
			params: twoI, results: none,
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				mem := b.guestMemory(mod)
				if mem == nil {
					return
				}
				msg, err := b.strings.Decode(mem, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
				if err != nil {
					b.status("console_log", err)
					return
				}
				b.logger.Info(msg, zap.String("source", "guest"))
			},
		},
		{
			name:   "handle_drop",
			params: twoI, results: oneI,
			fn: func(_ context.Context, _ api.Module, stack []uint64) {
				category, ok := handle.CategoryByID(api.DecodeU32(stack[0]))
				if !ok {
					stack[0] = api.EncodeI32(StatusInvalidHandle)
					return
				}
				err := b.HandleRemove(category, handle.Handle(api.DecodeU32(stack[1])))
				stack[0] = api.EncodeI32(b.status("handle_drop", err))
			},
		},
		{
			name:   "input_count",
			params: none, results: oneI,
			fn: func(_ context.Context, _ api.Module, stack []uint64) {
				stack[0] = api.EncodeU32(uint32(b.input.Count()))
			},
		},
		{
			name:   "input_size",
			params: none, results: oneI,
			fn: func(_ context.Context, _ api.Module, stack []uint64) {
				stack[0] = api.EncodeU32(b.input.TotalSize())
			},
		},
		{
			name:   "input_flush",
			params: oneI, results: oneI,
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				mem := b.guestMemory(mod)
				if mem == nil {
					stack[0] = api.EncodeI32(StatusError)
					return
				}
				n, err := b.input.Flush(mem, api.DecodeU32(stack[0]))
				if err != nil {
					stack[0] = api.EncodeI32(b.status("input_flush", err))
					return
				}
				stack[0] = api.EncodeU32(n)
			},
		},
		{
			name:   "socket_create",
			params: twoI, results: oneI,
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				mem := b.guestMemory(mod)
				if mem == nil {
					stack[0] = api.EncodeI32(StatusError)
					return
				}
				url, err := b.strings.Decode(mem, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
				if err != nil {
					stack[0] = api.EncodeI32(b.status("socket_create", err))
					return
				}
				h, err := b.sockets.Open(url)
				if err != nil {
					stack[0] = api.EncodeI32(b.status("socket_create", err))
					return
				}
				stack[0] = api.EncodeU32(uint32(h))
			},
		},
		{
			name:   "socket_send",
			params: threeI, results: oneI,
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				mem := b.guestMemory(mod)
				if mem == nil {
					stack[0] = api.EncodeI32(StatusError)
					return
				}
				data, err := memory.Copy(mem, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
				if err == nil {
					err = b.sockets.Send(handle.Handle(api.DecodeU32(stack[0])), data)
				}
				stack[0] = api.EncodeI32(b.status("socket_send", err))
			},
		},
		{
			name:   "socket_close",
			params: fourI, results: oneI,
			fn: func(_ context.Context, mod api.Module, stack []uint64) {
				mem := b.guestMemory(mod)
				if mem == nil {
					stack[0] = api.EncodeI32(StatusError)
					return
				}
				reason, err := b.strings.Decode(mem, api.DecodeU32(stack[2]), api.DecodeU32(stack[3]))
				if err == nil {
					err = b.sockets.Close(handle.Handle(api.DecodeU32(stack[0])), int(api.DecodeI32(stack[1])), reason)
				}
				stack[0] = api.EncodeI32(b.status("socket_close", err))
			},
		},
	}
}

func (b *Bridge) hostModule() wazero.HostModuleBuilder {
	builder := b.runtime.NewHostModuleBuilder(HostModule)
	for _, hf := range b.hostFuncs() {
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(hf.fn, hf.params, hf.results).
			WithName(hf.name).
			Export(hf.name)
	}
	return builder
}
