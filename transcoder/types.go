package transcoder

import "github.com/wippyai/hostbridge/errors"

// Kind is a fixed-width little-endian primitive a struct field can hold.
type Kind uint8

const (
	KindI8 Kind = iota + 1
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindF32
	KindF64
)

var kindNames = [...]string{
	KindI8:  "i8",
	KindU8:  "u8",
	KindI16: "i16",
	KindU16: "u16",
	KindI32: "i32",
	KindU32: "u32",
	KindF32: "f32",
	KindF64: "f64",
}

func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return "unknown"
}

// Valid reports whether k is one of the supported primitives.
func (k Kind) Valid() bool {
	return k >= KindI8 && k <= KindF64
}

// Size returns the width of k in bytes, or 0 for an invalid kind.
func (k Kind) Size() uint32 {
	switch k {
	case KindI8, KindU8:
		return 1
	case KindI16, KindU16:
		return 2
	case KindI32, KindU32, KindF32:
		return 4
	case KindF64:
		return 8
	default:
		return 0
	}
}

// Signed reports whether k is a signed integer.
func (k Kind) Signed() bool {
	return k == KindI8 || k == KindI16 || k == KindI32
}

// Float reports whether k is a floating-point kind.
func (k Kind) Float() bool {
	return k == KindF32 || k == KindF64
}

// ParseKind maps a primitive name such as "u8" or "f32" to its Kind.
func ParseKind(name string) (Kind, error) {
	for k := KindI8; k <= KindF64; k++ {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return 0, errors.Unsupported(errors.PhaseFormat, nil, name, "not a supported field primitive")
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, errors.Unsupported(errors.PhaseFormat, nil, k.String(), "not a supported field primitive")
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Field places one named primitive at a byte offset within a struct.
type Field struct {
	Name   string
	Kind   Kind
	Offset uint32
}

// End returns the offset one past the field's last byte.
func (f Field) End() uint32 {
	return f.Offset + f.Kind.Size()
}
