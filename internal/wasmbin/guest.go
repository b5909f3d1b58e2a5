package wasmbin

// Globals defined by NewGuest.
const (
	GlobalHeapTop = 0
	GlobalLive    = 1
)

// HeapBase is where NewGuest starts handing out memory.
const HeapBase = 1024

// NewGuest returns a one-page guest exporting memory, a bump allocator
// alloc(size) -> ptr that returns 0 once the page is exhausted, and
// dealloc(ptr, size). The exported "live" global counts allocations not yet
// freed. Callers append their own imports and functions before Encode.
func NewGuest() *Module {
	// alloc(size): local 1 = ptr, local 2 = new top
	alloc := NewCode().
		GlobalGet(GlobalHeapTop).LocalSet(1).
		LocalGet(1).LocalGet(0).I32Add().I32Const(7).I32Add().I32Const(-8).I32And().LocalSet(2).
		I32Const(65536).LocalGet(0).I32LtU().If().I32Const(0).Return().End().
		I32Const(65536).LocalGet(2).I32LtU().If().I32Const(0).Return().End().
		LocalGet(2).GlobalSet(GlobalHeapTop).
		GlobalGet(GlobalLive).I32Const(1).I32Add().GlobalSet(GlobalLive).
		LocalGet(1)

	dealloc := NewCode().
		GlobalGet(GlobalLive).I32Const(1).I32Sub().GlobalSet(GlobalLive)

	return &Module{
		MemoryPages:  1,
		MemoryExport: "memory",
		Globals: []Global{
			{Init: HeapBase, Mutable: true, Export: "heap_top"},
			{Init: 0, Mutable: true, Export: "live"},
		},
		Funcs: []Func{
			{
				Export: "alloc",
				Type:   FuncType{Params: []ValType{I32}, Results: []ValType{I32}},
				Locals: []ValType{I32, I32},
				Body:   alloc,
			},
			{
				Export: "dealloc",
				Type:   FuncType{Params: []ValType{I32, I32}},
				Body:   dealloc,
			},
		},
	}
}
