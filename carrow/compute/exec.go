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

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paleolimbot/arrowvctrs/carrow"
	"github.com/paleolimbot/arrowvctrs/carrow/cdata"
	"github.com/paleolimbot/arrowvctrs/carrow/internal/debug"
	"github.com/paleolimbot/arrowvctrs/carrow/vector"
)

// ExecCtx holds the execution options of a call.
type ExecCtx struct {
	// Alloc provides the memory for output buffers.
	Alloc memory.Allocator
	// Registry resolves function names in CallFunction.
	Registry FunctionRegistry
}

type ctxExecKey struct{}

var defaultExecCtx ExecCtx

func init() {
	defaultExecCtx.Alloc = memory.DefaultAllocator
	defaultExecCtx.Registry = GetFunctionRegistry()
}

func SetExecCtx(ctx context.Context, e ExecCtx) context.Context {
	return context.WithValue(ctx, ctxExecKey{}, e)
}

// GetExecCtx returns the ExecCtx stored in ctx, or the default one. Unset
// fields fall back to their defaults.
func GetExecCtx(ctx context.Context) ExecCtx {
	e, ok := ctx.Value(ctxExecKey{}).(ExecCtx)
	if !ok {
		return defaultExecCtx
	}
	if e.Alloc == nil {
		e.Alloc = defaultExecCtx.Alloc
	}
	if e.Registry == nil {
		e.Registry = defaultExecCtx.Registry
	}
	return e
}

// Call invokes fn on args, writing the result into schemaOut and
// arrayOut, which must be empty nodes owned by the caller.
//
// The shape inferred by fn is copied into the outputs and released, the
// output buffers are allocated from the ExecCtx allocator and fn computes
// into them. On failure the outputs are released and hold no memory.
func Call(ctx context.Context, fn Function, args []Arg, schemaOut *cdata.Schema, arrayOut *cdata.Array) error {
	if fn == nil || schemaOut == nil || arrayOut == nil {
		return fmt.Errorf("%w: nil function or output", carrow.ErrInvalid)
	}

	shapeSchema, shapeArray, err := fn.InferShape(ctx, args)
	if err != nil {
		shapeSchema.Release()
		shapeArray.Release()
		schemaOut.Release()
		arrayOut.Release()
		return err
	}
	debug.Logf("%s: inferred %s with length %d", fn.Name(), shapeSchema.Format, shapeArray.Length)

	err = cdata.CopySchema(schemaOut, shapeSchema)
	if err == nil {
		err = cdata.CopyPtype(arrayOut, shapeArray)
	}
	shapeSchema.Release()
	shapeArray.Release()

	if err == nil {
		err = compute(ctx, fn, args, schemaOut, arrayOut)
	}
	if err != nil {
		schemaOut.Release()
		arrayOut.Release()
		return err
	}
	return nil
}

func compute(ctx context.Context, fn Function, args []Arg, schemaOut *cdata.Schema, arrayOut *cdata.Array) error {
	out, err := vector.New(schemaOut, arrayOut, vector.WithAllocator(GetExecCtx(ctx).Alloc))
	if err != nil {
		return err
	}
	if err := out.AllocBuffers(); err != nil {
		return err
	}
	debug.Log(out.View())

	return fn.Compute(ctx, args, schemaOut, arrayOut)
}

// CallFunction looks name up in the ExecCtx registry and calls it.
func CallFunction(ctx context.Context, name string, args []Arg, schemaOut *cdata.Schema, arrayOut *cdata.Array) error {
	fn, ok := GetExecCtx(ctx).Registry.GetFunction(name)
	if !ok {
		return fmt.Errorf("%w: function '%s' not found", carrow.ErrKey, name)
	}
	return Call(ctx, fn, args, schemaOut, arrayOut)
}
