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

	"github.com/paleolimbot/arrowvctrs/carrow"
	"github.com/paleolimbot/arrowvctrs/carrow/array"
	"github.com/paleolimbot/arrowvctrs/carrow/cdata"
	"github.com/paleolimbot/arrowvctrs/carrow/internal/debug"
	"github.com/paleolimbot/arrowvctrs/carrow/vector"
)

var identityDoc = FunctionDoc{
	Summary:     "Return a copy of the input",
	Description: "The result has the type and values of the input, with offset zero\nand freshly allocated buffers.",
	ArgNames:    []string{"values"},
}

type identity struct {
	baseFunction
}

// NewIdentity returns a unary function whose result is a copy of its
// argument.
func NewIdentity() Function {
	return &identity{baseFunction{name: "identity", arity: Unary(), doc: identityDoc}}
}

func RegisterIdentity(reg FunctionRegistry) {
	reg.AddFunction(NewIdentity(), false)
}

func (f *identity) InferShape(ctx context.Context, args []Arg) (*cdata.Schema, *cdata.Array, error) {
	if err := f.begin(args); err != nil {
		return nil, nil, err
	}

	in, err := array.Build(args[0].Schema, args[0].Array)
	if err != nil {
		return nil, nil, f.fail(err)
	}

	schema := new(cdata.Schema)
	if err := cdata.CopySchema(schema, args[0].Schema); err != nil {
		return nil, nil, f.fail(err)
	}
	shape, err := in.Shape(0, in.Len())
	if err != nil {
		schema.Release()
		return nil, nil, f.fail(err)
	}
	return schema, shape, nil
}

func (f *identity) Compute(ctx context.Context, args []Arg, schemaOut *cdata.Schema, arrayOut *cdata.Array) error {
	if err := f.begin(args); err != nil {
		return err
	}

	mem := GetExecCtx(ctx).Alloc
	src, err := vector.New(args[0].Schema, args[0].Array, vector.WithAllocator(mem))
	if err != nil {
		return f.fail(err)
	}
	dst, err := vector.New(schemaOut, arrayOut, vector.WithAllocator(mem))
	if err != nil {
		return f.fail(err)
	}

	if dst.Len() > src.Len() {
		return f.fail(fmt.Errorf("%w: output length %d exceeds input length %d",
			carrow.ErrOutOfRange, dst.Len(), src.Len()))
	}

	debug.Logf("identity: copying %d elements of %s", dst.Len(), src.View())
	return f.fail(vector.Copy(dst, 0, src, 0, dst.Len()))
}
