package memory

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	hostbridge "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/errors"
)

// AllocatorExports names the guest functions backing a GuestAllocator.
type AllocatorExports struct {
	Alloc string
	Free  string
}

// DefaultAllocatorExports matches guests exporting alloc(size) and
// dealloc(ptr) or dealloc(ptr, size).
var DefaultAllocatorExports = AllocatorExports{Alloc: "alloc", Free: "dealloc"}

// GuestAllocator implements hostbridge.Allocator by calling guest exports.
// A returned pointer of zero is reported as an allocation failure.
type GuestAllocator struct {
	allocFn    api.Function
	freeFn     api.Function
	logger     *zap.Logger
	currentCtx context.Context
	stackBuf   []uint64
	freeArity  int
	stackMutex sync.Mutex
}

// NewGuestAllocator resolves the allocator exports of mod.
// The free export is optional; without it Free is a no-op.
func NewGuestAllocator(mod api.Module, exports AllocatorExports, logger *zap.Logger) (*GuestAllocator, error) {
	if mod == nil {
		return nil, errors.NotInitialized(errors.PhaseAlloc, "guest module")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	allocFn := mod.ExportedFunction(exports.Alloc)
	if allocFn == nil {
		return nil, errors.NotFound(errors.PhaseAlloc, "export", exports.Alloc)
	}
	def := allocFn.Definition()
	if len(def.ParamTypes()) != 1 || len(def.ResultTypes()) != 1 ||
		def.ParamTypes()[0] != api.ValueTypeI32 || def.ResultTypes()[0] != api.ValueTypeI32 {
		return nil, errors.InvalidInput(errors.PhaseAlloc, exports.Alloc+" must have signature (i32) -> i32")
	}

	a := &GuestAllocator{
		allocFn:  allocFn,
		logger:   logger,
		stackBuf: make([]uint64, 2),
	}

	if exports.Free != "" {
		if freeFn := mod.ExportedFunction(exports.Free); freeFn != nil {
			arity := len(freeFn.Definition().ParamTypes())
			if arity < 1 || arity > 2 {
				return nil, errors.InvalidInput(errors.PhaseAlloc, exports.Free+" must take (ptr) or (ptr, size)")
			}
			a.freeFn = freeFn
			a.freeArity = arity
		}
	}
	return a, nil
}

// SetContext sets the context used for subsequent guest calls.
func (a *GuestAllocator) SetContext(ctx context.Context) {
	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()
	a.currentCtx = ctx
}

func (a *GuestAllocator) Alloc(size uint32) (uint32, error) {
	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()

	ctx := a.currentCtx
	if ctx == nil {
		ctx = context.Background()
	}

	a.stackBuf[0] = uint64(size)
	if err := a.allocFn.CallWithStack(ctx, a.stackBuf[:1]); err != nil {
		return 0, errors.AllocationFailed(size, err)
	}
	ptr := uint32(a.stackBuf[0])
	if ptr == 0 {
		return 0, errors.AllocationFailed(size, nil)
	}
	return ptr, nil
}

func (a *GuestAllocator) Free(ptr, size uint32) {
	if a.freeFn == nil || ptr == 0 {
		return
	}

	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()

	ctx := a.currentCtx
	if ctx == nil {
		ctx = context.Background()
	}

	a.stackBuf[0] = uint64(ptr)
	a.stackBuf[1] = uint64(size)
	if err := a.freeFn.CallWithStack(ctx, a.stackBuf[:a.freeArity]); err != nil {
		a.logger.Warn("guest dealloc failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

// BumpAllocator serves allocations from [base, limit) of a memory.
// Freeing the most recent allocation reclaims it; other frees only
// decrement the live count.
type BumpAllocator struct {
	mem   hostbridge.Memory
	base  uint32
	top   uint32
	limit uint32
	last  uint32
	live  int
	mu    sync.Mutex
}

const bumpAlign = 8

// NewBumpAllocator creates an allocator over [base, limit). A limit of zero
// extends to the end of mem. Address zero is never handed out.
func NewBumpAllocator(mem hostbridge.Memory, base, limit uint32) *BumpAllocator {
	if base < bumpAlign {
		base = bumpAlign
	}
	if limit == 0 {
		limit = mem.Size()
	}
	return &BumpAllocator{mem: mem, base: base, top: base, limit: limit}
}

func (a *BumpAllocator) Alloc(size uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ptr := (a.top + bumpAlign - 1) &^ (bumpAlign - 1)
	end := uint64(ptr) + uint64(size)
	if end > uint64(a.limit) || end > uint64(a.mem.Size()) {
		return 0, errors.AllocationFailed(size, nil)
	}
	a.top = uint32(end)
	a.last = ptr
	a.live++
	return ptr, nil
}

func (a *BumpAllocator) Free(ptr, size uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ptr == 0 || a.live == 0 {
		return
	}
	a.live--
	if ptr == a.last && uint64(ptr)+uint64(size) == uint64(a.top) {
		a.top = ptr
	}
	if a.live == 0 {
		a.top = a.base
	}
}

// Live returns the number of allocations not yet freed.
func (a *BumpAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

// Reset discards every allocation.
func (a *BumpAllocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.top = a.base
	a.live = 0
}

var _ hostbridge.Allocator = (*GuestAllocator)(nil)
var _ hostbridge.Allocator = (*BumpAllocator)(nil)
