package memory

import (
	"github.com/tetratelabs/wazero/api"

	hostbridge "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/errors"
)

// Wazero wraps wazero memory to implement hostbridge.Memory
type Wazero struct {
	mem api.Memory
}

// NewWazero wraps a guest memory. Returns nil if mem is nil.
func NewWazero(mem api.Memory) *Wazero {
	if mem == nil {
		return nil
	}
	return &Wazero{mem: mem}
}

// MemoryExport is the export name guests publish their linear memory under.
const MemoryExport = "memory"

// FromModule returns the memory mod exports as MemoryExport, or nil if it
// has none. Module.Memory is not used: it returns a non-nil interface
// around a nil instance for memory-less modules.
func FromModule(mod api.Module) *Wazero {
	if mod == nil {
		return nil
	}
	return NewWazero(mod.ExportedMemory(MemoryExport))
}

func (m *Wazero) oob(offset uint32, length uint64) error {
	return errors.OutOfBounds(errors.PhaseMemory, uint64(offset), length, m.mem.Size())
}

func (m *Wazero) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, m.oob(offset, uint64(length))
	}
	return data, nil
}

func (m *Wazero) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return m.oob(offset, uint64(len(data)))
	}
	return nil
}

func (m *Wazero) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, m.oob(offset, 1)
	}
	return v, nil
}

func (m *Wazero) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.mem.ReadUint16Le(offset)
	if !ok {
		return 0, m.oob(offset, 2)
	}
	return v, nil
}

func (m *Wazero) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, m.oob(offset, 4)
	}
	return v, nil
}

func (m *Wazero) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, m.oob(offset, 8)
	}
	return v, nil
}

func (m *Wazero) WriteU8(offset uint32, value uint8) error {
	if !m.mem.WriteByte(offset, value) {
		return m.oob(offset, 1)
	}
	return nil
}

func (m *Wazero) WriteU16(offset uint32, value uint16) error {
	if !m.mem.WriteUint16Le(offset, value) {
		return m.oob(offset, 2)
	}
	return nil
}

func (m *Wazero) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return m.oob(offset, 4)
	}
	return nil
}

func (m *Wazero) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return m.oob(offset, 8)
	}
	return nil
}

func (m *Wazero) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

func (m *Wazero) Grow(deltaPages uint32) (uint32, bool) {
	return m.mem.Grow(deltaPages)
}

// Compile-time check that Wazero implements hostbridge.Memory and Grower
var _ hostbridge.Memory = (*Wazero)(nil)
var _ hostbridge.Grower = (*Wazero)(nil)
