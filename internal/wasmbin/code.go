package wasmbin

import "bytes"

const (
	opUnreachable = 0x00
	opBlock       = 0x02
	opLoop        = 0x03
	opIf          = 0x04
	opElse        = 0x05
	opEnd         = 0x0b
	opBr          = 0x0c
	opBrIf        = 0x0d
	opReturn      = 0x0f
	opCall        = 0x10
	opDrop        = 0x1a
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opLocalTee    = 0x22
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Load     = 0x28
	opI32Load8U   = 0x2d
	opI32Store    = 0x36
	opI32Store8   = 0x3a
	opI32Const    = 0x41
	opI32Eqz      = 0x45
	opI32Eq       = 0x46
	opI32LtU      = 0x49
	opI32Add      = 0x6a
	opI32Sub      = 0x6b
	opI32Mul      = 0x6c
	opI32And      = 0x71

	blockEmpty = 0x40
)

// Code accumulates a function body. The terminating end is added by
// Module.Encode.
type Code struct {
	buf bytes.Buffer
}

// NewCode starts an empty function body.
func NewCode() *Code {
	return &Code{}
}

func (c *Code) op(b byte) *Code {
	c.buf.WriteByte(b)
	return c
}

func (c *Code) idx(b byte, i uint32) *Code {
	c.buf.WriteByte(b)
	writeU32(&c.buf, i)
	return c
}

func (c *Code) memarg(b byte, align, offset uint32) *Code {
	c.buf.WriteByte(b)
	writeU32(&c.buf, align)
	writeU32(&c.buf, offset)
	return c
}

func (c *Code) Unreachable() *Code            { return c.op(opUnreachable) }
func (c *Code) End() *Code                    { return c.op(opEnd) }
func (c *Code) Else() *Code                   { return c.op(opElse) }
func (c *Code) Return() *Code                 { return c.op(opReturn) }
func (c *Code) Drop() *Code                   { return c.op(opDrop) }
func (c *Code) Block() *Code                  { return c.op(opBlock).op(blockEmpty) }
func (c *Code) Loop() *Code                   { return c.op(opLoop).op(blockEmpty) }
func (c *Code) If() *Code                     { return c.op(opIf).op(blockEmpty) }
func (c *Code) Br(depth uint32) *Code         { return c.idx(opBr, depth) }
func (c *Code) BrIf(depth uint32) *Code       { return c.idx(opBrIf, depth) }
func (c *Code) Call(fn int) *Code             { return c.idx(opCall, uint32(fn)) }
func (c *Code) LocalGet(i uint32) *Code       { return c.idx(opLocalGet, i) }
func (c *Code) LocalSet(i uint32) *Code       { return c.idx(opLocalSet, i) }
func (c *Code) LocalTee(i uint32) *Code       { return c.idx(opLocalTee, i) }
func (c *Code) GlobalGet(i uint32) *Code      { return c.idx(opGlobalGet, i) }
func (c *Code) GlobalSet(i uint32) *Code      { return c.idx(opGlobalSet, i) }
func (c *Code) I32Eqz() *Code                 { return c.op(opI32Eqz) }
func (c *Code) I32Eq() *Code                  { return c.op(opI32Eq) }
func (c *Code) I32LtU() *Code                 { return c.op(opI32LtU) }
func (c *Code) I32Add() *Code                 { return c.op(opI32Add) }
func (c *Code) I32Sub() *Code                 { return c.op(opI32Sub) }
func (c *Code) I32Mul() *Code                 { return c.op(opI32Mul) }
func (c *Code) I32And() *Code                 { return c.op(opI32And) }
func (c *Code) I32Load(offset uint32) *Code   { return c.memarg(opI32Load, 2, offset) }
func (c *Code) I32Load8U(offset uint32) *Code { return c.memarg(opI32Load8U, 0, offset) }
func (c *Code) I32Store(offset uint32) *Code  { return c.memarg(opI32Store, 2, offset) }
func (c *Code) I32Store8(offset uint32) *Code { return c.memarg(opI32Store8, 0, offset) }

func (c *Code) I32Const(v int32) *Code {
	c.buf.WriteByte(opI32Const)
	writeS32(&c.buf, v)
	return c
}
