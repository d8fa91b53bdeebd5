// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package decoder

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// BuildOptions configures the emitted decoder module.
type BuildOptions struct {
	// Export is the transform function's export name. Default: "transform".
	Export string

	// InitialPages is the initial linear memory size. Default: 1.
	InitialPages uint32
}

// WebAssembly binary encoding constants used by Build.
const (
	secType     = 0x01
	secFunction = 0x03
	secMemory   = 0x05
	secExport   = 0x07
	secCode     = 0x0a

	kindFunc   = 0x00
	kindMemory = 0x02

	typeFunc = 0x60
	typeI32  = 0x7f
	blockNil = 0x40

	opBlock    = 0x02
	opLoop     = 0x03
	opBr       = 0x0c
	opBrIf     = 0x0d
	opEnd      = 0x0b
	opLocalGet = 0x20
	opLocalSet = 0x21
	opI32Const = 0x41
	opLoad8U   = 0x2d
	opStore8   = 0x3a
	opGeU      = 0x4f
	opAdd      = 0x6a
	opRemU     = 0x70
	opXor      = 0x73
)

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Build emits the decoder module binary.
//
// The function body is equivalent to:
//
//	for i := 0; i < dataLen; i++ {
//		mem[dataPtr+i] ^= mem[keyPtr + i%keyLen]
//	}
func Build(opts BuildOptions) ([]byte, error) {
	if opts.Export == "" {
		opts.Export = DefaultExport
	}
	if opts.InitialPages == 0 {
		opts.InitialPages = 1
	}
	if !utf8.ValidString(opts.Export) || opts.Export == MemoryExport {
		return nil, fmt.Errorf("%w: export name %q", ErrInvalidModule, opts.Export)
	}

	var buf bytes.Buffer
	buf.Write(wasmHeader)

	// (func (param i32 i32 i32 i32))
	writeSection(&buf, secType, vec(1, []byte{typeFunc, 4, typeI32, typeI32, typeI32, typeI32, 0}))
	writeSection(&buf, secFunction, vec(1, []byte{0}))

	// (memory 1), no maximum
	writeSection(&buf, secMemory, vec(1, append([]byte{0x00}, uleb(opts.InitialPages)...)))

	var exports []byte
	exports = append(exports, name(MemoryExport)...)
	exports = append(exports, kindMemory, 0)
	exports = append(exports, name(opts.Export)...)
	exports = append(exports, kindFunc, 0)
	writeSection(&buf, secExport, vec(2, exports))

	body := transformBody()
	writeSection(&buf, secCode, vec(1, append(uleb(uint32(len(body))), body...)))

	return buf.Bytes(), nil
}

// transformBody returns the encoded function body. Params are locals 0..3
// (dataPtr, dataLen, keyPtr, keyLen); local 4 is the loop counter.
func transformBody() []byte {
	const i = 4
	return []byte{
		1, 1, typeI32, // one local of type i32

		opBlock, blockNil,
		opLoop, blockNil,

		// if i >= dataLen, leave the block
		opLocalGet, i,
		opLocalGet, 1,
		opGeU,
		opBrIf, 1,

		// store address: dataPtr + i
		opLocalGet, 0,
		opLocalGet, i,
		opAdd,

		// mem[dataPtr + i]
		opLocalGet, 0,
		opLocalGet, i,
		opAdd,
		opLoad8U, 0, 0,

		// mem[keyPtr + i % keyLen]
		opLocalGet, 2,
		opLocalGet, i,
		opLocalGet, 3,
		opRemU,
		opAdd,
		opLoad8U, 0, 0,

		opXor,
		opStore8, 0, 0,

		// i++
		opLocalGet, i,
		opI32Const, 1,
		opAdd,
		opLocalSet, i,
		opBr, 0,

		opEnd, // loop
		opEnd, // block
		opEnd, // function
	}
}

func writeSection(buf *bytes.Buffer, id byte, payload []byte) {
	buf.WriteByte(id)
	buf.Write(uleb(uint32(len(payload))))
	buf.Write(payload)
}

func vec(n uint32, items []byte) []byte {
	return append(uleb(n), items...)
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

// uleb encodes v as unsigned LEB128.
func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// readULEB decodes an unsigned LEB128 value from p, returning the value and
// the number of bytes consumed.
func readULEB(p []byte) (uint32, int, error) {
	var v uint32
	var shift uint
	for n, b := range p {
		if shift >= 35 {
			break
		}
		v |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, n + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("%w: malformed LEB128", ErrInvalidModule)
}
