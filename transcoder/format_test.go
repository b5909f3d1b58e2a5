package transcoder

import (
	"bytes"
	stderrors "errors"
	"math"
	"testing"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/memory"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name string
		want Kind
		size uint32
	}{
		{"i8", KindI8, 1},
		{"u8", KindU8, 1},
		{"i16", KindI16, 2},
		{"u16", KindU16, 2},
		{"i32", KindI32, 4},
		{"u32", KindU32, 4},
		{"f32", KindF32, 4},
		{"f64", KindF64, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := ParseKind(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if k != tt.want || k.Size() != tt.size || k.String() != tt.name {
				t.Errorf("ParseKind(%q) = %v (size %d)", tt.name, k, k.Size())
			}
		})
	}

	for _, bad := range []string{"i64", "u64", "bool", ""} {
		if _, err := ParseKind(bad); !stderrors.Is(err, errors.ErrUnsupportedEncoding) {
			t.Errorf("ParseKind(%q) err = %v", bad, err)
		}
	}
}

func TestDefineFormat_Size(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
		want   uint32
	}{
		{"empty", nil, 0},
		{"packed", []Field{{"a", KindU8, 0}, {"b", KindI32, 4}}, 8},
		{"unordered", []Field{{"y", KindI32, 8}, {"t", KindU8, 0}, {"x", KindI32, 4}}, 12},
		{"overlap", []Field{{"whole", KindU32, 0}, {"low", KindU8, 0}}, 4},
		{"f64 tail", []Field{{"a", KindU8, 0}, {"d", KindF64, 1}}, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DefineFormat(tt.fields...)
			if err != nil {
				t.Fatal(err)
			}
			if f.Size() != tt.want {
				t.Errorf("Size = %d, want %d", f.Size(), tt.want)
			}
		})
	}
}

func TestDefineFormat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
		kind   errors.Kind
	}{
		{"unsupported kind", []Field{{"a", Kind(42), 0}}, errors.KindUnsupportedEncoding},
		{"zero kind", []Field{{"a", 0, 0}}, errors.KindUnsupportedEncoding},
		{"duplicate", []Field{{"a", KindU8, 0}, {"a", KindU8, 1}}, errors.KindDuplicate},
		{"unnamed", []Field{{"", KindU8, 0}}, errors.KindInvalidInput},
		{"past address space", []Field{{"a", KindU32, math.MaxUint32 - 1}}, errors.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefineFormat(tt.fields...)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != tt.kind {
				t.Errorf("err = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestDefineFormat_CopiesFields(t *testing.T) {
	fields := []Field{{"a", KindU8, 0}}
	f, _ := DefineFormat(fields...)
	fields[0].Kind = KindF64
	if f.Size() != 1 || f.Fields()[0].Kind != KindU8 {
		t.Error("format changed after caller mutated its field slice")
	}
}

func TestValue_WriteTo(t *testing.T) {
	f := MustDefineFormat("pair", Field{"a", KindU8, 0}, Field{"b", KindI32, 4})
	mem := memory.NewBufferBytes(make([]byte, 64))

	v, err := f.Encode(Record{"a": 7, "b": -1})
	if err != nil {
		t.Fatal(err)
	}
	if v.Size() != 8 {
		t.Fatalf("Size = %d, want 8", v.Size())
	}
	if err := v.WriteTo(mem, 16); err != nil {
		t.Fatal(err)
	}

	got := mem.Bytes()[16:24]
	want := []byte{0x07, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}
	if !bytes.Equal(got, want) {
		t.Errorf("bytes = % x, want % x", got, want)
	}
	if mem.Bytes()[15] != 0 || mem.Bytes()[24] != 0 {
		t.Error("write spilled outside the struct extent")
	}
}

func TestValue_Wraparound(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		in   any
		want any
	}{
		{"u8 300", KindU8, 300, uint64(44)},
		{"u8 -1", KindU8, -1, uint64(255)},
		{"i8 200", KindI8, 200, int64(-56)},
		{"u16 70000", KindU16, 70000, uint64(4464)},
		{"i16 -1", KindI16, int16(-1), int64(-1)},
		{"u32 -1", KindU32, int64(-1), uint64(math.MaxUint32)},
		{"i32 2^31", KindI32, uint32(1 << 31), int64(math.MinInt32)},
		{"u8 float truncates", KindU8, 3.9, uint64(3)},
		{"i8 negative float truncates", KindI8, -3.9, int64(-3)},
		{"u8 NaN", KindU8, math.NaN(), uint64(0)},
		{"i32 +Inf", KindI32, math.Inf(1), int64(0)},
		{"u8 float wraps", KindU8, 257.5, uint64(1)},
		{"f32 from int", KindF32, 2, float64(2)},
		{"f64 exact", KindF64, 0.1, 0.1},
	}

	mem := memory.NewBufferBytes(make([]byte, 16))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := MustDefineFormat("one", Field{"v", tt.kind, 0})
			v, err := f.Encode(Record{"v": tt.in})
			if err != nil {
				t.Fatal(err)
			}
			if err := v.WriteTo(mem, 0); err != nil {
				t.Fatal(err)
			}
			rec, err := f.Decode(mem, 0)
			if err != nil {
				t.Fatal(err)
			}
			if rec["v"] != tt.want {
				t.Errorf("read back %v (%T), want %v (%T)", rec["v"], rec["v"], tt.want, tt.want)
			}
		})
	}
}

func TestValue_OverlapLastWins(t *testing.T) {
	f := MustDefineFormat("overlap", Field{"whole", KindU32, 0}, Field{"low", KindU8, 0})
	mem := memory.NewBufferBytes(make([]byte, 8))
	v, _ := f.Encode(Record{"whole": 0x11223344, "low": 0xaa})
	if err := v.WriteTo(mem, 0); err != nil {
		t.Fatal(err)
	}
	if got := mem.Bytes()[:4]; !bytes.Equal(got, []byte{0xaa, 0x33, 0x22, 0x11}) {
		t.Errorf("bytes = % x", got)
	}
}

func TestValue_OutOfBoundsWritesNothing(t *testing.T) {
	f := MustDefineFormat("pair", Field{"a", KindU8, 0}, Field{"b", KindI32, 4})
	mem := memory.NewBufferBytes(make([]byte, 10))
	v, _ := f.Encode(Record{"a": 1, "b": 2})

	err := v.WriteTo(mem, 4)
	if !stderrors.Is(err, errors.ErrOutOfBounds) {
		t.Fatalf("err = %v, want out_of_bounds", err)
	}
	if !bytes.Equal(mem.Bytes(), make([]byte, 10)) {
		t.Errorf("memory modified by failed write: % x", mem.Bytes())
	}

	if err := v.WriteTo(mem, 2); err != nil {
		t.Errorf("write ending exactly at memory end: %v", err)
	}
}

func TestFormat_EncodeErrors(t *testing.T) {
	f := MustDefineFormat("move", Field{"x", KindI32, 0}, Field{"y", KindI32, 4})
	tests := []struct {
		name   string
		record Record
		kind   errors.Kind
	}{
		{"missing", Record{"x": 1}, errors.KindFieldMissing},
		{"unknown", Record{"x": 1, "y": 2, "z": 3}, errors.KindFieldUnknown},
		{"string", Record{"x": "1", "y": 2}, errors.KindUnsupportedEncoding},
		{"bool", Record{"x": 1, "y": true}, errors.KindUnsupportedEncoding},
		{"nil", Record{"x": nil, "y": 2}, errors.KindUnsupportedEncoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Encode(tt.record)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != tt.kind {
				t.Fatalf("err = %v, want %s", err, tt.kind)
			}
			if len(e.Path) == 0 || e.Path[0] != "move" {
				t.Errorf("path = %v, want format name first", e.Path)
			}
		})
	}
}

func TestFormat_DecodeOutOfBounds(t *testing.T) {
	f := MustDefineFormat("d", Field{"v", KindF64, 0})
	mem := memory.NewBufferBytes(make([]byte, 7))
	if _, err := f.Decode(mem, 0); !stderrors.Is(err, errors.ErrOutOfBounds) {
		t.Errorf("err = %v", err)
	}
}

func TestValue_ZeroValue(t *testing.T) {
	var v Value
	if v.Size() != 0 {
		t.Error("zero Value should have size 0")
	}
	if err := v.WriteTo(memory.NewBufferBytes(make([]byte, 4)), 0); err == nil {
		t.Error("zero Value WriteTo should fail")
	}
}
