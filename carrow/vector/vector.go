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

// Package vector allocates and fills the buffers of columns described by
// a schema/array pair.
package vector

import (
	"fmt"
	"math"

	"github.com/JohnCGriffin/overflow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paleolimbot/arrowvctrs/carrow"
	"github.com/paleolimbot/arrowvctrs/carrow/array"
	"github.com/paleolimbot/arrowvctrs/carrow/cdata"
)

type config struct {
	mem memory.Allocator
}

// Option configures a Vector.
type Option func(*config)

// WithAllocator sets the allocator used for buffers allocated or grown
// through the vector. The default is memory.DefaultAllocator.
func WithAllocator(mem memory.Allocator) Option {
	return func(c *config) {
		c.mem = mem
	}
}

// Vector pairs the view of a column with the allocator its buffers are
// taken from. It does not own the schema or array nodes.
type Vector struct {
	view *array.View
	mem  memory.Allocator
}

// New builds a vector over a schema/array pair.
func New(schema *cdata.Schema, arr *cdata.Array, opts ...Option) (*Vector, error) {
	v, err := array.Build(schema, arr)
	if err != nil {
		return nil, err
	}
	return FromView(v, opts...), nil
}

// FromView wraps an existing view.
func FromView(v *array.View, opts ...Option) *Vector {
	cfg := config{mem: memory.DefaultAllocator}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.mem == nil {
		cfg.mem = memory.DefaultAllocator
	}
	return &Vector{view: v, mem: cfg.mem}
}

func (v *Vector) View() *array.View           { return v.view }
func (v *Vector) Allocator() memory.Allocator { return v.mem }
func (v *Vector) Len() int64                  { return v.view.Len() }

// Child returns the vector of the i-th child, sharing the allocator.
func (v *Vector) Child(i int) *Vector {
	return &Vector{view: v.view.Child(i), mem: v.mem}
}

// AllocBuffers allocates zero-filled buffers for a bufferless array and all
// of its children, sized for Offset()+Len() elements. Validity bitmaps
// start all valid, matching the zero null count. Variable-width data
// buffers start empty and grow as values are copied in. On failure every
// buffer allocated by the call is released and the array is left
// bufferless.
func (v *Vector) AllocBuffers() error {
	var done []*cdata.Array
	if err := v.allocBuffers(&done); err != nil {
		for _, arr := range done {
			releaseBuffers(arr)
		}
		return err
	}
	return nil
}

func (v *Vector) allocBuffers(done *[]*cdata.Array) error {
	arr := v.view.Array()
	if arr.NBuffers() != 0 {
		return fmt.Errorf("%w: %s already has buffers", carrow.ErrInvalid, v.view)
	}

	sizes, err := bufferSizes(v.view)
	if err != nil {
		return err
	}

	if len(sizes) > 0 {
		bufs := make([]*memory.Buffer, len(sizes))
		for i, sz := range sizes {
			if bufs[i], err = allocate(v.mem, sz); err != nil {
				for _, b := range bufs[:i] {
					b.Release()
				}
				return err
			}
		}
		arr.Buffers = bufs
		*done = append(*done, arr)
		if vb, ok := v.view.Validity(); ok {
			memory.Set(vb, 0xFF)
		}
	}

	arr.NullCount = 0
	if v.view.Type() == carrow.NA {
		arr.NullCount = arr.Length
	}

	for i := 0; i < v.view.NumChildren(); i++ {
		if err := v.Child(i).allocBuffers(done); err != nil {
			return err
		}
	}
	return nil
}

func bufferSizes(v *array.View) ([]int64, error) {
	n, ok := overflow.Add64(v.Offset(), v.Len())
	if !ok {
		return nil, errOverflow(v)
	}

	sizes := make([]int64, v.NumBuffers())
	for kind := array.ValidityBuffer; kind <= array.DataBuffer; kind++ {
		slot, has := v.Slot(kind)
		if !has {
			continue
		}
		if sizes[slot], ok = bufferSize(v, kind, n); !ok {
			return nil, errOverflow(v)
		}
	}
	return sizes, nil
}

func bufferSize(v *array.View, kind array.BufferKind, n int64) (int64, bool) {
	switch kind {
	case array.ValidityBuffer:
		return bitutil.BytesForBits(n), true
	case array.UnionTypeIDsBuffer:
		return n, true
	case array.OffsetsBuffer, array.LargeOffsetsBuffer:
		width := int64(4)
		if kind == array.LargeOffsetsBuffer {
			width = 8
		}
		// dense unions have one offset per element, everything else n+1
		if v.Type() != carrow.DENSE_UNION {
			var ok bool
			if n, ok = overflow.Add64(n, 1); !ok {
				return 0, false
			}
		}
		return overflow.Mul64(n, width)
	}

	switch {
	case v.IsBitPacked():
		return bitutil.BytesForBits(n), true
	case v.IsFixedWidth():
		return overflow.Mul64(n, v.ByteWidth())
	}
	return 0, true
}

func errOverflow(v *array.View) error {
	return fmt.Errorf("%w: buffer sizes of %s overflow", carrow.ErrAllocation, v)
}

// allocate returns a zero-filled resizable buffer, turning allocator
// panics into errors.
func allocate(mem memory.Allocator, size int64) (buf *memory.Buffer, err error) {
	if size < 0 || size > math.MaxInt {
		return nil, fmt.Errorf("%w: cannot allocate %d bytes", carrow.ErrAllocation, size)
	}
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("%w: allocating %d bytes: %v", carrow.ErrAllocation, size, r)
		}
	}()

	buf = memory.NewResizableBuffer(mem)
	buf.Resize(int(size))
	memory.Set(buf.Bytes(), 0)
	return buf, nil
}

// grow makes sure buf holds at least size bytes, keeping its contents.
func grow(buf *memory.Buffer, size int64) (err error) {
	if int64(buf.Len()) >= size {
		return nil
	}
	if size > math.MaxInt {
		return fmt.Errorf("%w: cannot grow buffer to %d bytes", carrow.ErrAllocation, size)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: growing buffer to %d bytes: %v", carrow.ErrAllocation, size, r)
		}
	}()
	buf.Resize(int(size))
	return nil
}

func releaseBuffers(arr *cdata.Array) {
	for _, b := range arr.Buffers {
		if b != nil {
			b.Release()
		}
	}
	arr.Buffers = nil
}
