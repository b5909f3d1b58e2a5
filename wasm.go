package hostbridge

// Memory is a typed view over guest linear memory.
// All multi-byte values are little-endian. Every access is bounds-checked
// against the current size; writes are visible to the guest immediately.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
	Size() uint32
}

// Grower is implemented by memories that can grow in place.
// Growth invalidates slices previously returned by Read, never offsets.
type Grower interface {
	Grow(deltaPages uint32) (previousPages uint32, ok bool)
}

// Allocator hands out guest memory. The bridge never allocates guest
// memory on its own; every pointer it writes to came from an Allocator.
// Free takes the size passed to Alloc for guests whose deallocator needs it.
type Allocator interface {
	Alloc(size uint32) (uint32, error)
	Free(ptr, size uint32)
}

// PageSize is the wasm linear memory page size.
const PageSize = 65536
