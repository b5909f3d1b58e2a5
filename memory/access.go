package memory

import (
	"math"

	hostbridge "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/errors"
)

// Memory is the guest memory interface the helpers operate on.
type Memory = hostbridge.Memory

// CheckRange reports out_of_bounds if [offset, offset+length) is not inside mem.
func CheckRange(mem Memory, offset uint32, length uint64) error {
	if uint64(offset)+length > uint64(mem.Size()) {
		return errors.OutOfBounds(errors.PhaseMemory, uint64(offset), length, mem.Size())
	}
	return nil
}

// View returns the bytes in [offset, offset+length) without copying.
// The slice aliases guest memory and is invalidated by growth.
func View(mem Memory, offset, length uint32) ([]byte, error) {
	return mem.Read(offset, length)
}

// Copy returns a private copy of [offset, offset+length).
func Copy(mem Memory, offset, length uint32) ([]byte, error) {
	data, err := mem.Read(offset, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Zero clears [offset, offset+length).
func Zero(mem Memory, offset, length uint32) error {
	data, err := mem.Read(offset, length)
	if err != nil {
		return err
	}
	clear(data)
	return nil
}

func ReadI8(mem Memory, offset uint32) (int8, error) {
	v, err := mem.ReadU8(offset)
	return int8(v), err
}

func ReadI16(mem Memory, offset uint32) (int16, error) {
	v, err := mem.ReadU16(offset)
	return int16(v), err
}

func ReadI32(mem Memory, offset uint32) (int32, error) {
	v, err := mem.ReadU32(offset)
	return int32(v), err
}

func ReadF32(mem Memory, offset uint32) (float32, error) {
	v, err := mem.ReadU32(offset)
	return math.Float32frombits(v), err
}

func ReadF64(mem Memory, offset uint32) (float64, error) {
	v, err := mem.ReadU64(offset)
	return math.Float64frombits(v), err
}

func WriteI8(mem Memory, offset uint32, value int8) error {
	return mem.WriteU8(offset, uint8(value))
}

func WriteI16(mem Memory, offset uint32, value int16) error {
	return mem.WriteU16(offset, uint16(value))
}

func WriteI32(mem Memory, offset uint32, value int32) error {
	return mem.WriteU32(offset, uint32(value))
}

// WriteF32 stores the IEEE-754 bits of value unchanged, NaN payloads included.
func WriteF32(mem Memory, offset uint32, value float32) error {
	return mem.WriteU32(offset, math.Float32bits(value))
}

// WriteF64 stores the IEEE-754 bits of value unchanged, NaN payloads included.
func WriteF64(mem Memory, offset uint32, value float64) error {
	return mem.WriteU64(offset, math.Float64bits(value))
}
