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

package array

import (
	"fmt"

	"github.com/JohnCGriffin/overflow"
	"github.com/goccy/go-json"
	"github.com/paleolimbot/arrowvctrs/carrow"
	"github.com/paleolimbot/arrowvctrs/carrow/cdata"
)

// Shape returns a bufferless array node describing the logical range
// [start, start+length) of v with offset zero. Children are sized to hold
// exactly the elements the range refers to, so that allocating buffers for
// the shape and copying the range into it reproduces the values.
func (v *View) Shape(start, length int64) (*cdata.Array, error) {
	end, ok := overflow.Add64(start, length)
	if !ok || start < 0 || length < 0 || end > v.Len() {
		return nil, fmt.Errorf("%w: range of %d elements at %d of column with length %d",
			carrow.ErrOutOfRange, length, start, v.Len())
	}

	out := &cdata.Array{Length: length}
	if v.Type() == carrow.NA {
		out.NullCount = length
	}
	pos, ok := overflow.Add64(v.Offset(), start)
	if !ok {
		return nil, fmt.Errorf("%w: offset overflows", carrow.ErrOutOfRange)
	}

	var err error
	switch v.Type() {
	case carrow.STRUCT, carrow.SPARSE_UNION:
		out.Children = make([]*cdata.Array, len(v.children))
		for i, child := range v.children {
			if out.Children[i], err = child.Shape(pos, length); err != nil {
				return nil, err
			}
		}
	case carrow.FIXED_SIZE_LIST:
		size := int64(v.format.ListSize)
		childStart, ok1 := overflow.Mul64(pos, size)
		childLen, ok2 := overflow.Mul64(length, size)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: fixed-size list child range overflows", carrow.ErrOutOfRange)
		}
		child, err := v.children[0].Shape(childStart, childLen)
		if err != nil {
			return nil, err
		}
		out.Children = []*cdata.Array{child}
	case carrow.LIST, carrow.MAP:
		offsets, _ := v.Offsets()
		child, err := listShape(v.children[0], offsets, pos, length)
		if err != nil {
			return nil, err
		}
		out.Children = []*cdata.Array{child}
	case carrow.LARGE_LIST:
		offsets, _ := v.LargeOffsets()
		child, err := listShape(v.children[0], offsets, pos, length)
		if err != nil {
			return nil, err
		}
		out.Children = []*cdata.Array{child}
	case carrow.DENSE_UNION:
		if out.Children, err = v.denseUnionShape(pos, length); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func listShape[T int32 | int64](child *View, offsets []T, pos, length int64) (*cdata.Array, error) {
	if length == 0 {
		return child.Shape(0, 0)
	}
	if int64(len(offsets)) < pos+length+1 {
		return nil, fmt.Errorf("%w: offsets buffer holds %d entries, need %d",
			carrow.ErrOutOfRange, len(offsets), pos+length+1)
	}
	first, last := int64(offsets[pos]), int64(offsets[pos+length])
	if last < first {
		return nil, fmt.Errorf("%w: decreasing offsets %d > %d", carrow.ErrInvalid, first, last)
	}
	return child.Shape(first, last-first)
}

// denseUnionShape sizes each child to the number of elements the range
// points at; copies pack them without gaps. Children with children of their
// own additionally need those elements to be adjacent, otherwise the
// range is not supported.
func (v *View) denseUnionShape(pos, length int64) ([]*cdata.Array, error) {
	n := len(v.children)
	first := make([]int64, n)
	count := make([]int64, n)

	if length > 0 {
		typeIDs, _ := v.UnionTypeIDs()
		offsets, _ := v.Offsets()
		if int64(len(typeIDs)) < pos+length || int64(len(offsets)) < pos+length {
			return nil, fmt.Errorf("%w: union buffers too short for range", carrow.ErrOutOfRange)
		}
		for i := pos; i < pos+length; i++ {
			c, ok := v.ChildIndex(typeIDs[i])
			if !ok {
				return nil, fmt.Errorf("%w: unknown union type code %d", carrow.ErrInvalid, typeIDs[i])
			}
			off := int64(offsets[i])
			switch {
			case count[c] == 0:
				first[c] = off
			case off != first[c]+count[c] && carrow.IsNested(v.children[c].Type()):
				return nil, fmt.Errorf("%w: non-contiguous dense union child %d", carrow.ErrNotImplemented, c)
			}
			count[c]++
		}
	}

	out := make([]*cdata.Array, n)
	for i, child := range v.children {
		start := first[i]
		if !carrow.IsNested(child.Type()) {
			start = 0
		}
		var err error
		if out[i], err = child.Shape(start, count[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type viewJSON struct {
	Name      string         `json:"name,omitempty"`
	Type      string         `json:"type"`
	Format    string         `json:"format"`
	Length    int64          `json:"length"`
	Offset    int64          `json:"offset"`
	NullCount int64          `json:"null_count"`
	NBuffers  int            `json:"n_buffers"`
	BitWidth  int64          `json:"bit_width"`
	DataType  string         `json:"data_buffer_type"`
	Slots     map[string]int `json:"slots,omitempty"`
	Children  []*View        `json:"children,omitempty"`
}

func (v *View) MarshalJSON() ([]byte, error) {
	out := viewJSON{
		Name:      v.schema.Name,
		Type:      v.Type().String(),
		Format:    v.schema.Format,
		Length:    v.Len(),
		Offset:    v.Offset(),
		NullCount: v.NullCount(),
		NBuffers:  v.nbuffers,
		BitWidth:  v.bitWidth,
		DataType:  v.dataBufferType.String(),
		Children:  v.children,
	}
	for k := BufferKind(0); k < numBufferKinds; k++ {
		if s, ok := v.Slot(k); ok {
			if out.Slots == nil {
				out.Slots = make(map[string]int)
			}
			out.Slots[k.String()] = s
		}
	}
	return json.Marshal(out)
}

func (v *View) String() string {
	return fmt.Sprintf("%s<%s>[offset=%d, length=%d]", v.Type(), v.schema.Format, v.Offset(), v.Len())
}
