// Package wasmbin assembles small core wasm modules.
//
// It covers exactly what bridge guests need: imported host functions, one
// linear memory, i32 globals, data segments and exported functions. Tests
// and the demo driver use it to build guests without an external toolchain.
package wasmbin

import (
	"bytes"
)

// ValType is a core wasm value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

const (
	magic   = "\x00asm"
	version = "\x01\x00\x00\x00"
)

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11
)

const (
	kindFunc   = 0x00
	kindMemory = 0x02
	kindGlobal = 0x03
)

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (ft FuncType) key() string {
	return string(valBytes(ft.Params)) + "|" + string(valBytes(ft.Results))
}

// Import is an imported host function.
type Import struct {
	Module string
	Name   string
	Type   FuncType
}

// Func is a defined function. Export may be empty.
type Func struct {
	Export string
	Type   FuncType
	Locals []ValType
	Body   *Code
}

// Global is a mutable or immutable i32 global.
type Global struct {
	Export  string
	Init    int32
	Mutable bool
}

// Data is an active data segment in memory 0.
type Data struct {
	Bytes  []byte
	Offset uint32
}

// Module describes a module with at most one memory.
type Module struct {
	Imports      []Import
	Funcs        []Func
	Globals      []Global
	Data         []Data
	MemoryExport string
	MemoryPages  uint32
	MaxPages     uint32
}

// FuncIndex returns the function index of the named import or export,
// or -1 when absent. Imports come first in the index space.
func (m *Module) FuncIndex(name string) int {
	for i, imp := range m.Imports {
		if imp.Name == name {
			return i
		}
	}
	for i, f := range m.Funcs {
		if f.Export == name {
			return len(m.Imports) + i
		}
	}
	return -1
}

// Encode returns the binary encoding of the module.
func (m *Module) Encode() []byte {
	var out bytes.Buffer
	out.WriteString(magic)
	out.WriteString(version)

	var types []FuncType
	typeIdx := map[string]uint32{}
	idxOf := func(ft FuncType) uint32 {
		k := ft.key()
		if i, ok := typeIdx[k]; ok {
			return i
		}
		i := uint32(len(types))
		types = append(types, ft)
		typeIdx[k] = i
		return i
	}
	importTypes := make([]uint32, len(m.Imports))
	for i, imp := range m.Imports {
		importTypes[i] = idxOf(imp.Type)
	}
	funcTypes := make([]uint32, len(m.Funcs))
	for i, f := range m.Funcs {
		funcTypes[i] = idxOf(f.Type)
	}

	if len(types) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(types)))
		for _, ft := range types {
			sec.WriteByte(0x60)
			writeU32(&sec, uint32(len(ft.Params)))
			sec.Write(valBytes(ft.Params))
			writeU32(&sec, uint32(len(ft.Results)))
			sec.Write(valBytes(ft.Results))
		}
		writeSection(&out, sectionType, sec.Bytes())
	}

	if len(m.Imports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Imports)))
		for i, imp := range m.Imports {
			writeName(&sec, imp.Module)
			writeName(&sec, imp.Name)
			sec.WriteByte(kindFunc)
			writeU32(&sec, importTypes[i])
		}
		writeSection(&out, sectionImport, sec.Bytes())
	}

	if len(m.Funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Funcs)))
		for _, idx := range funcTypes {
			writeU32(&sec, idx)
		}
		writeSection(&out, sectionFunction, sec.Bytes())
	}

	if m.MemoryPages > 0 {
		var sec bytes.Buffer
		writeU32(&sec, 1)
		if m.MaxPages > 0 {
			sec.WriteByte(0x01)
			writeU32(&sec, m.MemoryPages)
			writeU32(&sec, m.MaxPages)
		} else {
			sec.WriteByte(0x00)
			writeU32(&sec, m.MemoryPages)
		}
		writeSection(&out, sectionMemory, sec.Bytes())
	}

	if len(m.Globals) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Globals)))
		for _, g := range m.Globals {
			sec.WriteByte(byte(I32))
			if g.Mutable {
				sec.WriteByte(0x01)
			} else {
				sec.WriteByte(0x00)
			}
			sec.WriteByte(opI32Const)
			writeS32(&sec, g.Init)
			sec.WriteByte(opEnd)
		}
		writeSection(&out, sectionGlobal, sec.Bytes())
	}

	var exports bytes.Buffer
	exportCount := uint32(0)
	if m.MemoryPages > 0 && m.MemoryExport != "" {
		writeName(&exports, m.MemoryExport)
		exports.WriteByte(kindMemory)
		writeU32(&exports, 0)
		exportCount++
	}
	for i, f := range m.Funcs {
		if f.Export == "" {
			continue
		}
		writeName(&exports, f.Export)
		exports.WriteByte(kindFunc)
		writeU32(&exports, uint32(len(m.Imports)+i))
		exportCount++
	}
	for i, g := range m.Globals {
		if g.Export == "" {
			continue
		}
		writeName(&exports, g.Export)
		exports.WriteByte(kindGlobal)
		writeU32(&exports, uint32(i))
		exportCount++
	}
	if exportCount > 0 {
		var sec bytes.Buffer
		writeU32(&sec, exportCount)
		sec.Write(exports.Bytes())
		writeSection(&out, sectionExport, sec.Bytes())
	}

	if len(m.Funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			var body bytes.Buffer
			writeU32(&body, uint32(len(f.Locals)))
			for _, l := range f.Locals {
				writeU32(&body, 1)
				body.WriteByte(byte(l))
			}
			if f.Body != nil {
				body.Write(f.Body.buf.Bytes())
			}
			body.WriteByte(opEnd)
			writeU32(&sec, uint32(body.Len()))
			sec.Write(body.Bytes())
		}
		writeSection(&out, sectionCode, sec.Bytes())
	}

	if len(m.Data) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Data)))
		for _, d := range m.Data {
			sec.WriteByte(0x00)
			sec.WriteByte(opI32Const)
			writeS32(&sec, int32(d.Offset))
			sec.WriteByte(opEnd)
			writeU32(&sec, uint32(len(d.Bytes)))
			sec.Write(d.Bytes)
		}
		writeSection(&out, sectionData, sec.Bytes())
	}

	return out.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, payload []byte) {
	w.WriteByte(id)
	writeU32(w, uint32(len(payload)))
	w.Write(payload)
}

func valBytes(vs []ValType) []byte {
	out := make([]byte, len(vs))
	for i, v := range vs {
		out[i] = byte(v)
	}
	return out
}
