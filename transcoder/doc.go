// Package transcoder marshals host records and strings into guest linear
// memory.
//
// # Struct Formats
//
// A Format is a flat list of primitive fields at explicit byte offsets,
// matching the C layout the guest reads:
//
//	Kind    Width   Stored as
//	─────────────────────────────
//	i8/u8   1       two's complement, wrapped
//	i16/u16 2       little-endian, wrapped
//	i32/u32 4       little-endian, wrapped
//	f32     4       IEEE 754 binary32
//	f64     8       IEEE 754 binary64
//
// Integer fields keep the low bits of the supplied number, so 300 written
// to a u8 reads back as 44 and -1 reads back as 255. Floats bound for an
// integer field are truncated toward zero; NaN and infinities become 0.
//
// Format size is the largest offset+width, with no implicit padding.
// Overlapping fields are allowed.
//
// # Encoding Flow
//
//  1. DefineFormat(fields...) → *Format
//  2. Format.Encode(record) → Value (field names and types checked here)
//  3. Value.WriteTo(mem, offset) (whole extent bounds-checked first)
//
// # Strings
//
// Strings cross as (pointer, byte length) pairs of UTF-8. Decoding never
// fails on content; malformed bytes become U+FFFD. Encoding allocates
// through a hostbridge.Allocator and hands ownership of the bytes to the
// caller. C strings carry a trailing NUL.
package transcoder
