// Package memory provides typed views over guest linear memory.
//
// Two backings implement hostbridge.Memory:
//
//	Buffer  - a Go-owned growable byte slice (headless hosts, tests)
//	Wazero  - an adapter over a wazero api.Memory exported by the guest
//
// On top of the unsigned accessors of the Memory interface the package adds
// signed and floating point helpers (ReadI8, WriteF32, ...), bounds-checked
// reslicing (View) and zero fill. Every helper reports out_of_bounds instead
// of truncating.
//
// A slice returned by View or Read aliases guest memory and stays valid only
// until the memory grows. Keep offsets, not slices, across guest calls.
//
// # Allocators
//
// The bridge never allocates guest memory itself. GuestAllocator calls the
// guest's exported alloc/dealloc functions; BumpAllocator serves a region of
// a Buffer for hosts that run without a guest.
package memory
