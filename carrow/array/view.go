// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package array derives the buffer layout of a column once so that its
// buffers can be addressed without re-parsing the schema.
//
// A View is built over a schema node and an array node it does not own.
// It records the logical type, the element width and the slot each kind of
// buffer occupies in the array's buffer list, following the slot order of
// the Arrow C data interface: validity, then offsets (32 or 64-bit), then
// union type ids, then data. Kinds that do not apply to a type have no slot
// and their accessors report false.
package array

import (
	"fmt"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paleolimbot/arrowvctrs/carrow"
	"github.com/paleolimbot/arrowvctrs/carrow/cdata"
	"github.com/paleolimbot/arrowvctrs/carrow/internal/debug"
	"golang.org/x/exp/constraints"
)

// BufferKind names the role of a buffer within a column.
type BufferKind int8

const (
	ValidityBuffer BufferKind = iota
	OffsetsBuffer
	LargeOffsetsBuffer
	UnionTypeIDsBuffer
	DataBuffer

	numBufferKinds
)

func (k BufferKind) String() string {
	switch k {
	case ValidityBuffer:
		return "validity"
	case OffsetsBuffer:
		return "offsets"
	case LargeOffsetsBuffer:
		return "large_offsets"
	case UnionTypeIDsBuffer:
		return "union_type_ids"
	case DataBuffer:
		return "data"
	}
	return fmt.Sprintf("BufferKind(%d)", int8(k))
}

const noSlot = -1

// View is a read-only projection of a schema/array pair. It borrows both
// nodes and never frees or mutates them; buffers are looked up through the
// array node on every access, so a View stays valid when buffers are
// attached to a bufferless array after it was built.
type View struct {
	schema *cdata.Schema
	data   *cdata.Array

	format         carrow.Format
	dataBufferType carrow.Type
	nbuffers       int
	bitWidth       int64

	slots    [numBufferKinds]int
	children []*View
	// union type code -> child index, noSlot when unused
	childIDs []int
}

// Build derives the view of a schema/array pair, recursing into children.
//
// The array may be bufferless (a shape whose buffers are yet to be
// allocated); otherwise it must carry exactly the number of buffers its
// type requires.
func Build(schema *cdata.Schema, arr *cdata.Array) (*View, error) {
	if schema.IsReleased() {
		return nil, fmt.Errorf("%w: schema is nil or released", carrow.ErrInvalid)
	}
	if arr.IsReleased() {
		return nil, fmt.Errorf("%w: array is nil or released", carrow.ErrInvalid)
	}
	if schema.Dictionary != nil || arr.Dictionary != nil {
		return nil, fmt.Errorf("%w: dictionary-encoded column '%s'", carrow.ErrUnsupportedType, schema.Name)
	}
	if arr.Length < 0 || arr.Offset < 0 {
		return nil, fmt.Errorf("%w: negative length %d or offset %d", carrow.ErrInvalid, arr.Length, arr.Offset)
	}

	format, err := carrow.ParseFormat(schema.Format)
	if err != nil {
		return nil, err
	}

	v := &View{schema: schema, data: arr, format: format}
	v.setLayout()

	if arr.NBuffers() != 0 && arr.NBuffers() != v.nbuffers {
		return nil, fmt.Errorf("%w: type %s expects %d buffers, array has %d",
			carrow.ErrInvalid, format.Type, v.nbuffers, arr.NBuffers())
	}

	if err := v.buildChildren(); err != nil {
		return nil, err
	}

	switch format.Type {
	case carrow.LIST, carrow.LARGE_LIST, carrow.FIXED_SIZE_LIST, carrow.MAP:
		v.dataBufferType = v.children[0].Type()
	}
	return v, nil
}

// setLayout assigns slots in C data interface order.
func (v *View) setLayout() {
	for i := range v.slots {
		v.slots[i] = noSlot
	}

	typ := v.format.Type
	next := 0
	assign := func(k BufferKind) {
		v.slots[k] = next
		next++
	}

	if carrow.HasValidityBitmap(typ) {
		assign(ValidityBuffer)
	}

	v.bitWidth = -1
	v.dataBufferType = carrow.NA
	switch {
	case typ == carrow.NA:
		v.bitWidth = 0
	case carrow.IsBinaryLike(typ):
		assign(OffsetsBuffer)
		assign(DataBuffer)
		v.dataBufferType = carrow.UINT8
	case carrow.IsLargeBinaryLike(typ):
		assign(LargeOffsetsBuffer)
		assign(DataBuffer)
		v.dataBufferType = carrow.UINT8
	case typ == carrow.LIST, typ == carrow.MAP:
		assign(OffsetsBuffer)
	case typ == carrow.LARGE_LIST:
		assign(LargeOffsetsBuffer)
	case typ == carrow.FIXED_SIZE_LIST, typ == carrow.STRUCT:
	case typ == carrow.SPARSE_UNION:
		assign(UnionTypeIDsBuffer)
	case typ == carrow.DENSE_UNION:
		// type ids come first for unions, followed by the int32 offsets
		assign(UnionTypeIDsBuffer)
		assign(OffsetsBuffer)
	case typ == carrow.FIXED_SIZE_BINARY:
		assign(DataBuffer)
		v.bitWidth = int64(v.format.BitWidth())
		v.dataBufferType = carrow.UINT8
	default:
		assign(DataBuffer)
		v.bitWidth = int64(v.format.BitWidth())
		v.dataBufferType = typ
	}
	v.nbuffers = next
}

func (v *View) buildChildren() error {
	typ := v.format.Type
	nschema, narr := len(v.schema.Children), len(v.data.Children)
	if nschema != narr {
		return fmt.Errorf("%w: schema has %d children, array has %d", carrow.ErrInvalid, nschema, narr)
	}

	expected := -1
	switch {
	case !carrow.IsNested(typ):
		expected = 0
	case carrow.IsListLike(typ), typ == carrow.FIXED_SIZE_LIST:
		expected = 1
	case carrow.IsUnion(typ):
		expected = len(v.format.TypeCodes)
	}
	if expected >= 0 && nschema != expected {
		return fmt.Errorf("%w: type %s expects %d children, found %d", carrow.ErrInvalid, typ, expected, nschema)
	}

	if carrow.IsUnion(typ) {
		v.childIDs = make([]int, 128)
		for i := range v.childIDs {
			v.childIDs[i] = noSlot
		}
		for i, code := range v.format.TypeCodes {
			if code < 0 {
				return fmt.Errorf("%w: negative union type code %d", carrow.ErrInvalid, code)
			}
			if v.childIDs[code] != noSlot {
				return fmt.Errorf("%w: duplicate union type code %d", carrow.ErrInvalid, code)
			}
			v.childIDs[code] = i
		}
	}

	if nschema == 0 {
		return nil
	}
	v.children = make([]*View, nschema)
	for i := range v.children {
		child, err := Build(v.schema.Children[i], v.data.Children[i])
		if err != nil {
			return err
		}
		v.children[i] = child
	}
	return nil
}

func (v *View) Schema() *cdata.Schema { return v.schema }
func (v *View) Array() *cdata.Array   { return v.data }
func (v *View) Type() carrow.Type     { return v.format.Type }
func (v *View) Format() carrow.Format { return v.format }

// DataBufferType is the type of the values stored by the column: the type
// itself for primitives, UINT8 for binary payloads, the element type for
// list-like columns and NA for structs and unions.
func (v *View) DataBufferType() carrow.Type { return v.dataBufferType }

// NumBuffers is the number of buffers the type occupies, not counting
// children.
func (v *View) NumBuffers() int { return v.nbuffers }

// BitWidth is the width of one element in bits, 1 for booleans and -1 for
// anything that is not fixed-width.
func (v *View) BitWidth() int64 { return v.bitWidth }

// ByteWidth is the width of one element in bytes, or -1 when the type is
// bit-packed or not fixed-width.
func (v *View) ByteWidth() int64 {
	if v.bitWidth < 0 || v.bitWidth%8 != 0 {
		return -1
	}
	return v.bitWidth / 8
}

func (v *View) IsBitPacked() bool  { return v.format.Type == carrow.BOOL }
func (v *View) IsFixedWidth() bool { return v.bitWidth > 0 }

func (v *View) Len() int64       { return v.data.Length }
func (v *View) Offset() int64    { return v.data.Offset }
func (v *View) NullCount() int64 { return v.data.NullCount }

func (v *View) NumChildren() int  { return len(v.children) }
func (v *View) Child(i int) *View { return v.children[i] }
func (v *View) Children() []*View { return v.children }
func (v *View) HasBuffers() bool  { return v.nbuffers == 0 || v.data.NBuffers() == v.nbuffers }

// ChildIndex maps a union type code onto the index of its child.
func (v *View) ChildIndex(code int8) (int, bool) {
	if v.childIDs == nil || code < 0 {
		return noSlot, false
	}
	idx := v.childIDs[code]
	return idx, idx != noSlot
}

// Slot returns the position of the buffer of the given kind in the array's
// buffer list, or false when the type has no such buffer.
func (v *View) Slot(kind BufferKind) (int, bool) {
	if kind < 0 || kind >= numBufferKinds {
		return noSlot, false
	}
	s := v.slots[kind]
	return s, s != noSlot
}

// Buffer returns the buffer of the given kind. The boolean reports whether
// the type has such a buffer at all; the buffer itself may still be nil when
// it is absent or not allocated yet.
func (v *View) Buffer(kind BufferKind) (*memory.Buffer, bool) {
	s, ok := v.Slot(kind)
	if !ok {
		return nil, false
	}
	return v.buffer(s), true
}

func (v *View) buffer(slot int) *memory.Buffer {
	debug.Assert(slot != noSlot, "access to a buffer slot that does not apply to the type")
	if slot >= v.data.NBuffers() {
		return nil
	}
	return v.data.Buffers[slot]
}

func (v *View) bytes(kind BufferKind) ([]byte, bool) {
	buf, ok := v.Buffer(kind)
	if !ok || buf == nil {
		return nil, ok
	}
	return buf.Bytes(), true
}

// Validity returns the validity bitmap, indexed by physical position
// (Offset()+i).
func (v *View) Validity() ([]byte, bool) { return v.bytes(ValidityBuffer) }

// Offsets returns the 32-bit offsets of string, binary, list, map and dense
// union columns, indexed by physical position.
func (v *View) Offsets() ([]int32, bool) {
	b, ok := v.bytes(OffsetsBuffer)
	return arrow.Int32Traits.CastFromBytes(b), ok
}

// LargeOffsets returns the 64-bit offsets of the large variants.
func (v *View) LargeOffsets() ([]int64, bool) {
	b, ok := v.bytes(LargeOffsetsBuffer)
	return arrow.Int64Traits.CastFromBytes(b), ok
}

// UnionTypeIDs returns the type code buffer of union columns.
func (v *View) UnionTypeIDs() ([]int8, bool) {
	b, ok := v.bytes(UnionTypeIDsBuffer)
	return arrow.Int8Traits.CastFromBytes(b), ok
}

// Data returns the raw bytes of the data buffer.
func (v *View) Data() ([]byte, bool) { return v.bytes(DataBuffer) }

// FixedWidth is the set of Go types a fixed-width data buffer can be
// reinterpreted as.
type FixedWidth interface {
	constraints.Integer | constraints.Float
}

// Values reinterprets the data buffer of v as a slice of T covering the
// logical elements [0, Len()). It returns false when v has no data buffer,
// when T does not match the element width or when the buffer is too short.
func Values[T FixedWidth](v *View) ([]T, bool) {
	b, ok := v.Data()
	var zero T
	if !ok || v.ByteWidth() != int64(unsafe.Sizeof(zero)) {
		return nil, false
	}
	n := v.Offset() + v.Len()
	if int64(len(b)) < n*int64(unsafe.Sizeof(zero)) {
		return nil, false
	}
	if n == 0 {
		return []T{}, true
	}
	out := unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n)
	return out[v.Offset():], true
}
