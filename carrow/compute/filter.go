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

package compute

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/paleolimbot/arrowvctrs/carrow"
	"github.com/paleolimbot/arrowvctrs/carrow/array"
	"github.com/paleolimbot/arrowvctrs/carrow/cdata"
	"github.com/paleolimbot/arrowvctrs/carrow/internal/debug"
	"github.com/paleolimbot/arrowvctrs/carrow/vector"
)

var filterDoc = FunctionDoc{
	Summary: "Select the values where a boolean mask is true",
	Description: "The mask must be a boolean column of the same length as the values.\n" +
		"Null mask entries drop the corresponding value.",
	ArgNames: []string{"values", "selection_filter"},
}

type filter struct {
	baseFunction
}

// NewFilter returns a binary function keeping the elements of its first
// argument where the boolean mask given as second argument is true. Only
// columns without children can be filtered.
func NewFilter() Function {
	return &filter{baseFunction{name: "filter", arity: Binary(), doc: filterDoc}}
}

func RegisterFilter(reg FunctionRegistry) {
	reg.AddFunction(NewFilter(), false)
}

// mask reports whether element i of a boolean view is valid and true.
type mask struct {
	data, validity []byte
	offset         int64
}

func (m mask) selected(i int64) bool {
	pos := int(m.offset + i)
	if len(m.validity) > 0 && !bitutil.BitIsSet(m.validity, pos) {
		return false
	}
	return bitutil.BitIsSet(m.data, pos)
}

func (f *filter) views(args []Arg) (*array.View, mask, error) {
	values, err := array.Build(args[0].Schema, args[0].Array)
	if err != nil {
		return nil, mask{}, err
	}
	sel, err := array.Build(args[1].Schema, args[1].Array)
	if err != nil {
		return nil, mask{}, err
	}

	switch {
	case sel.Type() != carrow.BOOL:
		return nil, mask{}, fmt.Errorf("%w: filter mask must be BOOL, got %s", carrow.ErrTypeMismatch, sel.Type())
	case carrow.IsNested(values.Type()):
		return nil, mask{}, fmt.Errorf("%w: filtering nested type %s", carrow.ErrNotImplemented, values.Type())
	case sel.Len() != values.Len():
		return nil, mask{}, fmt.Errorf("%w: mask length %d does not match values length %d",
			carrow.ErrInvalid, sel.Len(), values.Len())
	}

	data, _ := sel.Data()
	validity, _ := sel.Validity()
	if n := sel.Len(); n > 0 && int64(len(data)) < bitutil.BytesForBits(sel.Offset()+n) {
		return nil, mask{}, fmt.Errorf("%w: mask data buffer is too short", carrow.ErrInvalid)
	}
	return values, mask{data: data, validity: validity, offset: sel.Offset()}, nil
}

func (f *filter) InferShape(ctx context.Context, args []Arg) (*cdata.Schema, *cdata.Array, error) {
	if err := f.begin(args); err != nil {
		return nil, nil, err
	}

	values, m, err := f.views(args)
	if err != nil {
		return nil, nil, f.fail(err)
	}

	var count int64
	for i := int64(0); i < values.Len(); i++ {
		if m.selected(i) {
			count++
		}
	}

	schema := new(cdata.Schema)
	if err := cdata.CopySchema(schema, args[0].Schema); err != nil {
		return nil, nil, f.fail(err)
	}
	shape := &cdata.Array{Length: count}
	if values.Type() == carrow.NA {
		shape.NullCount = count
	}
	return schema, shape, nil
}

func (f *filter) Compute(ctx context.Context, args []Arg, schemaOut *cdata.Schema, arrayOut *cdata.Array) error {
	if err := f.begin(args); err != nil {
		return err
	}

	values, m, err := f.views(args)
	if err != nil {
		return f.fail(err)
	}

	mem := GetExecCtx(ctx).Alloc
	src := vector.FromView(values, vector.WithAllocator(mem))
	dst, err := vector.New(schemaOut, arrayOut, vector.WithAllocator(mem))
	if err != nil {
		return f.fail(err)
	}

	var out int64
	for i := int64(0); i < src.Len(); {
		if !m.selected(i) {
			i++
			continue
		}
		run := int64(1)
		for i+run < src.Len() && m.selected(i+run) {
			run++
		}
		if err := vector.Copy(dst, out, src, i, run); err != nil {
			return f.fail(err)
		}
		out += run
		i += run
	}

	debug.Logf("filter: kept %d of %d elements", out, src.Len())
	if out != dst.Len() {
		return f.fail(fmt.Errorf("%w: filter selected %d elements for an output of length %d",
			carrow.ErrInvalid, out, dst.Len()))
	}
	return nil
}
