package transcoder

import (
	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/memory"
)

// Record holds field values by name. Values must be Go numeric types.
type Record map[string]any

// Format is an immutable struct layout: an ordered list of primitive fields
// at fixed byte offsets. Fields may overlap; the last one written wins.
type Format struct {
	name   string
	fields []Field
	index  map[string]int
	size   uint32
}

// DefineFormat builds a Format from fields. Its size is the largest
// offset+width over all fields. Unknown kinds and duplicate names are errors.
func DefineFormat(fields ...Field) (*Format, error) {
	return DefineNamedFormat("", fields...)
}

// DefineNamedFormat is DefineFormat with a name used in error paths.
func DefineNamedFormat(name string, fields ...Field) (*Format, error) {
	f := &Format{
		name:   name,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	copy(f.fields, fields)

	for i, field := range f.fields {
		path := f.path(field.Name)
		if field.Name == "" {
			return nil, errors.New(errors.PhaseFormat, errors.KindInvalidInput).
				Path(path...).
				Detail("field %d has no name", i).
				Build()
		}
		if !field.Kind.Valid() {
			return nil, errors.Unsupported(errors.PhaseFormat, path, field.Kind.String(), "not a supported field primitive")
		}
		if _, dup := f.index[field.Name]; dup {
			return nil, errors.New(errors.PhaseFormat, errors.KindDuplicate).
				Path(path...).
				Detail("field %q defined twice", field.Name).
				Build()
		}
		if uint64(field.Offset)+uint64(field.Kind.Size()) > 1<<32-1 {
			return nil, errors.InvalidInput(errors.PhaseFormat, "field extends past the 32-bit address space")
		}
		f.index[field.Name] = i
		f.size = max(f.size, field.End())
	}
	return f, nil
}

// MustDefineFormat is DefineFormat that panics on error, for static layouts.
func MustDefineFormat(name string, fields ...Field) *Format {
	f, err := DefineNamedFormat(name, fields...)
	if err != nil {
		panic(err)
	}
	return f
}

// Name returns the format name, which may be empty.
func (f *Format) Name() string { return f.name }

// Size returns the number of bytes a value of this format occupies.
func (f *Format) Size() uint32 { return f.size }

// Fields returns a copy of the field list in definition order.
func (f *Format) Fields() []Field {
	out := make([]Field, len(f.fields))
	copy(out, f.fields)
	return out
}

// Field returns the named field.
func (f *Format) Field(name string) (Field, bool) {
	i, ok := f.index[name]
	if !ok {
		return Field{}, false
	}
	return f.fields[i], true
}

func (f *Format) path(field string) []string {
	if f.name == "" {
		return []string{field}
	}
	return []string{f.name, field}
}

// Encode binds record to the format. Every field must be present, no extra
// keys are allowed, and every value must be numeric.
func (f *Format) Encode(record Record) (Value, error) {
	raw := make([]uint64, len(f.fields))
	for i, field := range f.fields {
		v, ok := record[field.Name]
		if !ok {
			return Value{}, errors.FieldMissing(errors.PhaseEncode, f.path(field.Name), field.Name)
		}
		b, err := bits(field.Kind, v, f.path(field.Name))
		if err != nil {
			return Value{}, err
		}
		raw[i] = b
	}
	if len(record) != len(f.fields) {
		for name := range record {
			if _, ok := f.index[name]; !ok {
				return Value{}, errors.FieldUnknown(errors.PhaseEncode, f.path(name), name)
			}
		}
	}
	return Value{format: f, raw: raw}, nil
}

// Decode reads every field of a struct stored at offset.
func (f *Format) Decode(mem memory.Memory, offset uint32) (Record, error) {
	if err := memory.CheckRange(mem, offset, uint64(f.size)); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindOutOfBounds, err, "struct "+f.name)
	}
	out := make(Record, len(f.fields))
	for _, field := range f.fields {
		raw, err := readRaw(mem, offset+field.Offset, field.Kind)
		if err != nil {
			return nil, err
		}
		out[field.Name] = fromBits(field.Kind, raw)
	}
	return out, nil
}

func readRaw(mem memory.Memory, off uint32, kind Kind) (uint64, error) {
	switch kind.Size() {
	case 1:
		v, err := mem.ReadU8(off)
		return uint64(v), err
	case 2:
		v, err := mem.ReadU16(off)
		return uint64(v), err
	case 4:
		v, err := mem.ReadU32(off)
		return uint64(v), err
	default:
		return mem.ReadU64(off)
	}
}

func writeRaw(mem memory.Memory, off uint32, kind Kind, raw uint64) error {
	switch kind.Size() {
	case 1:
		return mem.WriteU8(off, uint8(raw))
	case 2:
		return mem.WriteU16(off, uint16(raw))
	case 4:
		return mem.WriteU32(off, uint32(raw))
	default:
		return mem.WriteU64(off, raw)
	}
}
