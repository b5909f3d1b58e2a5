package memory

import (
	"encoding/binary"

	hostbridge "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/errors"
)

// Buffer is a Go-owned linear memory. It grows in whole pages like wasm
// memory and never shrinks.
type Buffer struct {
	data     []byte
	maxPages uint32
}

// NewBuffer creates a buffer of the given number of pages.
// maxPages of 0 means no limit beyond the 4GB address space.
func NewBuffer(pages, maxPages uint32) *Buffer {
	if maxPages == 0 {
		maxPages = 65536
	}
	return &Buffer{
		data:     make([]byte, uint64(pages)*hostbridge.PageSize),
		maxPages: maxPages,
	}
}

// NewBufferBytes wraps an existing byte slice. The buffer cannot grow.
func NewBufferBytes(b []byte) *Buffer {
	return &Buffer{data: b, maxPages: 0}
}

// Bytes returns the backing slice, valid until the next Grow.
func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) Size() uint32 {
	return uint32(len(b.data))
}

// Grow extends the buffer by deltaPages zeroed pages.
func (b *Buffer) Grow(deltaPages uint32) (uint32, bool) {
	prev := uint32(len(b.data) / hostbridge.PageSize)
	if uint64(prev)+uint64(deltaPages) > uint64(b.maxPages) {
		return prev, false
	}
	if deltaPages == 0 {
		return prev, true
	}
	grown := make([]byte, len(b.data)+int(deltaPages)*hostbridge.PageSize)
	copy(grown, b.data)
	b.data = grown
	return prev, true
}

func (b *Buffer) check(offset uint32, length uint64) error {
	if uint64(offset)+length > uint64(len(b.data)) {
		return errors.OutOfBounds(errors.PhaseMemory, uint64(offset), length, uint32(len(b.data)))
	}
	return nil
}

func (b *Buffer) Read(offset uint32, length uint32) ([]byte, error) {
	if err := b.check(offset, uint64(length)); err != nil {
		return nil, err
	}
	return b.data[offset : offset+length : offset+length], nil
}

func (b *Buffer) Write(offset uint32, data []byte) error {
	if err := b.check(offset, uint64(len(data))); err != nil {
		return err
	}
	copy(b.data[offset:], data)
	return nil
}

func (b *Buffer) ReadU8(offset uint32) (uint8, error) {
	if err := b.check(offset, 1); err != nil {
		return 0, err
	}
	return b.data[offset], nil
}

func (b *Buffer) ReadU16(offset uint32) (uint16, error) {
	if err := b.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b.data[offset:]), nil
}

func (b *Buffer) ReadU32(offset uint32) (uint32, error) {
	if err := b.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b.data[offset:]), nil
}

func (b *Buffer) ReadU64(offset uint32) (uint64, error) {
	if err := b.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b.data[offset:]), nil
}

func (b *Buffer) WriteU8(offset uint32, value uint8) error {
	if err := b.check(offset, 1); err != nil {
		return err
	}
	b.data[offset] = value
	return nil
}

func (b *Buffer) WriteU16(offset uint32, value uint16) error {
	if err := b.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b.data[offset:], value)
	return nil
}

func (b *Buffer) WriteU32(offset uint32, value uint32) error {
	if err := b.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[offset:], value)
	return nil
}

func (b *Buffer) WriteU64(offset uint32, value uint64) error {
	if err := b.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.data[offset:], value)
	return nil
}

var _ hostbridge.Memory = (*Buffer)(nil)
var _ hostbridge.Grower = (*Buffer)(nil)
