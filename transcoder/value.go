package transcoder

import (
	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/memory"
)

// Value is a record bound to its Format, ready to be written.
type Value struct {
	format *Format
	raw    []uint64
}

// Format returns the layout this value was bound to.
func (v Value) Format() *Format { return v.format }

// Size returns the format size in bytes.
func (v Value) Size() uint32 {
	if v.format == nil {
		return 0
	}
	return v.format.size
}

// WriteTo stores every field at offset+field.Offset. The whole extent is
// checked first, so a failing write leaves memory untouched.
// Bytes of the extent not covered by any field are left as they were.
func (v Value) WriteTo(mem memory.Memory, offset uint32) error {
	if v.format == nil {
		return errors.NotInitialized(errors.PhaseEncode, "struct value")
	}
	if err := memory.CheckRange(mem, offset, uint64(v.format.size)); err != nil {
		return errors.Wrap(errors.PhaseEncode, errors.KindOutOfBounds, err, "struct "+v.format.name)
	}
	for i, field := range v.format.fields {
		if err := writeRaw(mem, offset+field.Offset, field.Kind, v.raw[i]); err != nil {
			return err
		}
	}
	return nil
}
