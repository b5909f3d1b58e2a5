package transcoder

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	hostbridge "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/memory"
)

// StringCodec moves UTF-8 text across the memory boundary.
// The zero value replaces malformed sequences with U+FFFD in both directions.
type StringCodec struct {
	// StrictUTF8 rejects invalid host strings on encode with
	// unsupported_encoding instead of replacing bad bytes.
	StrictUTF8 bool
}

var defaultStrings StringCodec

// DecodeString reads n bytes at ptr as UTF-8.
func DecodeString(mem memory.Memory, ptr, n uint32) (string, error) {
	return defaultStrings.Decode(mem, ptr, n)
}

// DecodeCString reads a NUL-terminated string at ptr.
func DecodeCString(mem memory.Memory, ptr uint32) (string, error) {
	return defaultStrings.DecodeC(mem, ptr)
}

// EncodeString allocates len(s) bytes in guest memory and copies s there.
func EncodeString(mem memory.Memory, alloc hostbridge.Allocator, s string) (ptr, n uint32, err error) {
	return defaultStrings.Encode(mem, alloc, s)
}

// EncodeCString is EncodeString with a trailing NUL.
func EncodeCString(mem memory.Memory, alloc hostbridge.Allocator, s string) (ptr, n uint32, err error) {
	return defaultStrings.EncodeC(mem, alloc, s)
}

// Decode reads n bytes at ptr. Malformed sequences become U+FFFD; only a
// range outside memory is an error.
func (c StringCodec) Decode(mem memory.Memory, ptr, n uint32) (string, error) {
	data, err := mem.Read(ptr, n)
	if err != nil {
		return "", errors.Wrap(errors.PhaseDecode, errors.KindOutOfBounds, err, "string")
	}
	return decodeUTF8(data)
}

// DecodeC scans from ptr to the first NUL, which is not included.
// Running off the end of memory before a NUL is out_of_bounds.
func (c StringCodec) DecodeC(mem memory.Memory, ptr uint32) (string, error) {
	size := mem.Size()
	if ptr >= size {
		return "", errors.OutOfBounds(errors.PhaseDecode, uint64(ptr), 1, size)
	}
	rest, err := mem.Read(ptr, size-ptr)
	if err != nil {
		return "", errors.Wrap(errors.PhaseDecode, errors.KindOutOfBounds, err, "c string")
	}
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
			Value(ptr).
			Detail("no NUL terminator between %d and end of memory %d", ptr, size).
			Build()
	}
	return decodeUTF8(rest[:end])
}

// Encode copies s into a fresh guest allocation and returns its pointer and
// byte length. The caller owns the allocation. The empty string allocates
// nothing and returns (0, 0).
func (c StringCodec) Encode(mem memory.Memory, alloc hostbridge.Allocator, s string) (ptr, n uint32, err error) {
	data, err := c.bytes(s)
	if err != nil {
		return 0, 0, err
	}
	if len(data) == 0 {
		return 0, 0, nil
	}
	ptr, err = c.place(mem, alloc, data, uint32(len(data)))
	if err != nil {
		return 0, 0, err
	}
	return ptr, uint32(len(data)), nil
}

// EncodeC is Encode with one extra zero byte after the text. The returned
// length excludes the terminator.
func (c StringCodec) EncodeC(mem memory.Memory, alloc hostbridge.Allocator, s string) (ptr, n uint32, err error) {
	data, err := c.bytes(s)
	if err != nil {
		return 0, 0, err
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return 0, 0, errors.Unsupported(errors.PhaseEncode, nil, "c string", "embedded NUL")
	}
	buf := make([]byte, len(data)+1)
	copy(buf, data)
	ptr, err = c.place(mem, alloc, buf, uint32(len(buf)))
	if err != nil {
		return 0, 0, err
	}
	return ptr, uint32(len(data)), nil
}

func (c StringCodec) bytes(s string) ([]byte, error) {
	if utf8.ValidString(s) {
		return []byte(s), nil
	}
	if c.StrictUTF8 {
		return nil, errors.InvalidUTF8(errors.PhaseEncode, []byte(s))
	}
	out, err := unicode.UTF8.NewDecoder().String(s)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindUnsupportedEncoding, err, "replace invalid utf-8")
	}
	return []byte(out), nil
}

func (c StringCodec) place(mem memory.Memory, alloc hostbridge.Allocator, data []byte, size uint32) (uint32, error) {
	if alloc == nil {
		return 0, errors.NotInitialized(errors.PhaseAlloc, "allocator")
	}
	ptr, err := alloc.Alloc(size)
	if err != nil {
		return 0, err
	}
	if ptr == 0 {
		return 0, errors.AllocationFailed(size, nil)
	}
	if err := mem.Write(ptr, data); err != nil {
		alloc.Free(ptr, size)
		return 0, errors.Wrap(errors.PhaseEncode, errors.KindOutOfBounds, err, "string")
	}
	return ptr, nil
}

func decodeUTF8(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.Wrap(errors.PhaseDecode, errors.KindUnsupportedEncoding, err, "replace invalid utf-8")
	}
	return string(out), nil
}
