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

// Package compute defines functions over columns and the two-phase call
// protocol used to invoke them: a function first infers the shape of its
// result, the caller allocates buffers for that shape and the function
// then fills them in.
package compute

import (
	"context"
	"fmt"
	"strings"

	"github.com/paleolimbot/arrowvctrs/carrow"
	"github.com/paleolimbot/arrowvctrs/carrow/cdata"
	"github.com/paleolimbot/arrowvctrs/carrow/status"
)

// Arg is one input column of a function call. Functions borrow both
// nodes and never release them.
type Arg struct {
	Schema *cdata.Schema
	Array  *cdata.Array
}

// Function is a computation over columns.
//
// InferShape validates the arguments and returns the schema and a
// bufferless array describing the result; ownership of both passes to the
// caller. Compute fills an output whose buffers have been allocated for
// that shape. On failure both record the error, which stays available
// through LastError until the next call.
//
// A Function keeps the status of its last call and must not be invoked
// concurrently.
type Function interface {
	Name() string
	Arity() Arity
	Doc() FunctionDoc
	InferShape(ctx context.Context, args []Arg) (*cdata.Schema, *cdata.Array, error)
	Compute(ctx context.Context, args []Arg, schemaOut *cdata.Schema, arrayOut *cdata.Array) error
	LastError() string
	Validate() error
	Release()
}

type Arity struct {
	NArgs     int
	IsVarArgs bool
}

func Nullary() Arity            { return Arity{0, false} }
func Unary() Arity              { return Arity{1, false} }
func Binary() Arity             { return Arity{2, false} }
func VarArgs(minArgs int) Arity { return Arity{minArgs, true} }

type FunctionDoc struct {
	Summary     string
	Description string
	ArgNames    []string
}

var EmptyFuncDoc FunctionDoc

func ValidateFunctionSummary(summary string) error {
	if strings.Contains(summary, "\n") {
		return fmt.Errorf("%w: summary contains a newline", carrow.ErrInvalid)
	}
	if summary[len(summary)-1] == '.' {
		return fmt.Errorf("%w: summary ends with a point", carrow.ErrInvalid)
	}
	return nil
}

func ValidateFunctionDescription(desc string) error {
	if len(desc) != 0 && desc[len(desc)-1] == '\n' {
		return fmt.Errorf("%w: description ends with a newline", carrow.ErrInvalid)
	}

	const maxLineSize = 78
	for _, ln := range strings.Split(desc, "\n") {
		if len(ln) > maxLineSize {
			return fmt.Errorf("%w: description line length exceeds %d characters", carrow.ErrInvalid, maxLineSize)
		}
	}
	return nil
}

type baseFunction struct {
	name  string
	arity Arity
	doc   FunctionDoc

	st       status.Status
	released bool
}

func (b *baseFunction) Name() string      { return b.name }
func (b *baseFunction) Arity() Arity      { return b.arity }
func (b *baseFunction) Doc() FunctionDoc  { return b.doc }
func (b *baseFunction) LastError() string { return b.st.Message() }

// Release marks the function unusable. Releasing twice is a no-op.
func (b *baseFunction) Release() {
	b.released = true
	b.st.Reset()
}

func (b *baseFunction) Validate() error {
	if b.doc.Summary == "" {
		return nil
	}

	argCount := len(b.doc.ArgNames)
	if argCount != b.arity.NArgs && !(b.arity.IsVarArgs && argCount == b.arity.NArgs+1) {
		return fmt.Errorf("in function '%s': number of argument names for function doc != function arity", b.name)
	}

	if err := ValidateFunctionSummary(b.doc.Summary); err != nil {
		return err
	}
	return ValidateFunctionDescription(b.doc.Description)
}

func (b *baseFunction) checkArity(nargs int) error {
	switch {
	case b.arity.IsVarArgs && nargs < b.arity.NArgs:
		return fmt.Errorf("%w: varargs function '%s' needs at least %d arguments, but only %d passed",
			carrow.ErrInvalid, b.name, b.arity.NArgs, nargs)
	case !b.arity.IsVarArgs && nargs != b.arity.NArgs:
		return fmt.Errorf("%w: function '%s' accepts %d arguments but %d passed",
			carrow.ErrInvalid, b.name, b.arity.NArgs, nargs)
	}
	return nil
}

// begin resets the status for a new call and validates the argument count.
func (b *baseFunction) begin(args []Arg) error {
	b.st.Reset()
	if b.released {
		return b.fail(fmt.Errorf("%w: function '%s' has been released", carrow.ErrInvalid, b.name))
	}
	return b.fail(b.checkArity(len(args)))
}

// fail records err, if any, and returns it unchanged.
func (b *baseFunction) fail(err error) error {
	if err != nil {
		b.st.SetFromError(err)
	}
	return err
}
