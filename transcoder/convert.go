package transcoder

import (
	"fmt"
	"math"

	"github.com/wippyai/hostbridge/errors"
)

const two32 = 1 << 32

// bits converts v to the little-endian bit pattern of kind.
// Integer kinds keep the low bits of the value, so 300 stored as u8 is 44
// and -1 stored as u8 is 255. Floats bound for integer kinds are truncated
// toward zero first; NaN and infinities become 0.
func bits(kind Kind, v any, path []string) (uint64, error) {
	switch kind {
	case KindF32:
		f, err := toFloat(v, path)
		if err != nil {
			return 0, err
		}
		return uint64(math.Float32bits(float32(f))), nil
	case KindF64:
		f, err := toFloat(v, path)
		if err != nil {
			return 0, err
		}
		return math.Float64bits(f), nil
	}

	var raw uint64
	switch n := v.(type) {
	case int:
		raw = uint64(n)
	case int8:
		raw = uint64(n)
	case int16:
		raw = uint64(n)
	case int32:
		raw = uint64(n)
	case int64:
		raw = uint64(n)
	case uint:
		raw = uint64(n)
	case uint8:
		raw = uint64(n)
	case uint16:
		raw = uint64(n)
	case uint32:
		raw = uint64(n)
	case uint64:
		raw = n
	case float32:
		raw = uint64(wrapFloat(float64(n)))
	case float64:
		raw = uint64(wrapFloat(n))
	default:
		return 0, errors.Unsupported(errors.PhaseEncode, path, fmt.Sprintf("%T", v), "field values must be numeric")
	}

	switch kind.Size() {
	case 1:
		return raw & 0xff, nil
	case 2:
		return raw & 0xffff, nil
	default:
		return raw & 0xffffffff, nil
	}
}

// wrapFloat truncates f toward zero and reduces it modulo 2^32.
func wrapFloat(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), two32)
	if m < 0 {
		m += two32
	}
	return uint32(m)
}

func toFloat(v any, path []string) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, errors.Unsupported(errors.PhaseEncode, path, fmt.Sprintf("%T", v), "field values must be numeric")
	}
}

// fromBits turns a raw field pattern back into a Go value: int64 for signed
// kinds, uint64 for unsigned kinds and float64 for floats.
func fromBits(kind Kind, raw uint64) any {
	switch kind {
	case KindI8:
		return int64(int8(raw))
	case KindI16:
		return int64(int16(raw))
	case KindI32:
		return int64(int32(raw))
	case KindU8, KindU16, KindU32:
		return raw
	case KindF32:
		return float64(math.Float32frombits(uint32(raw)))
	case KindF64:
		return math.Float64frombits(raw)
	default:
		return nil
	}
}
