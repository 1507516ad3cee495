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

package compute_test

import (
	"context"
	"slices"
	"testing"

	"github.com/paleolimbot/arrowvctrs/carrow"
	"github.com/paleolimbot/arrowvctrs/carrow/cdata"
	"github.com/paleolimbot/arrowvctrs/carrow/compute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var registry compute.FunctionRegistry

func init() {
	// make tests fail if there's a problem initializing the global
	// function registry
	registry = compute.GetFunctionRegistry()
}

type mockFn struct {
	name string
}

func (m *mockFn) Name() string           { return m.name }
func (*mockFn) Arity() compute.Arity     { return compute.Unary() }
func (*mockFn) Doc() compute.FunctionDoc { return compute.EmptyFuncDoc }
func (*mockFn) InferShape(context.Context, []compute.Arg) (*cdata.Schema, *cdata.Array, error) {
	return nil, nil, carrow.ErrNotImplemented
}
func (*mockFn) Compute(context.Context, []compute.Arg, *cdata.Schema, *cdata.Array) error {
	return carrow.ErrNotImplemented
}
func (*mockFn) LastError() string { return "" }
func (*mockFn) Validate() error   { return nil }
func (*mockFn) Release()          {}

func TestRegistryBasics(t *testing.T) {
	tests := []struct {
		name          string
		factory       func() compute.FunctionRegistry
		nfuncs        int
		expectedNames []string
	}{
		{"default", compute.NewRegistry, 0, []string{}},
		{"nested", func() compute.FunctionRegistry {
			return compute.NewChildRegistry(registry)
		}, registry.NumFunctions(), registry.GetFunctionNames()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := tt.factory()
			assert.Equal(t, tt.nfuncs, registry.NumFunctions())

			fn := &mockFn{name: "f1"}
			assert.True(t, registry.AddFunction(fn, false))
			assert.Equal(t, tt.nfuncs+1, registry.NumFunctions())

			f1, ok := registry.GetFunction("f1")
			assert.True(t, ok)
			assert.Same(t, fn, f1)

			// non-existent
			_, ok = registry.GetFunction("f2")
			assert.False(t, ok)

			// name collision
			f2 := &mockFn{name: "f1"}
			assert.False(t, registry.AddFunction(f2, false))

			// allow overwriting
			assert.True(t, registry.AddFunction(f2, true))
			f1, ok = registry.GetFunction("f1")
			assert.True(t, ok)
			assert.Same(t, f2, f1)

			expected := append(slices.Clone(tt.expectedNames), "f1")
			slices.Sort(expected)
			assert.Equal(t, expected, registry.GetFunctionNames())

			// aliases
			assert.False(t, registry.AddAlias("f33", "f3")) // doesn't exist
			assert.True(t, registry.AddAlias("f11", "f1"))
			f1, ok = registry.GetFunction("f11")
			assert.True(t, ok)
			assert.Same(t, f2, f1)
		})
	}
}

func TestRegistryChildDoesNotLeak(t *testing.T) {
	const rounds = 3
	for i := 0; i < rounds; i++ {
		child := compute.NewChildRegistry(registry)
		for _, v := range []string{"f1", "f2"} {
			fn := &mockFn{name: v}
			assert.True(t, child.CanAddFunction(fn, false))
			assert.True(t, child.AddFunction(fn, false))
			assert.False(t, child.CanAddFunction(fn, false))
			assert.False(t, child.AddFunction(fn, false))
			assert.True(t, child.CanAddFunction(fn, true))
		}
		_, ok := registry.GetFunction("f1")
		assert.False(t, ok)
	}

	// built-ins cannot be shadowed without overwriting
	child := compute.NewChildRegistry(registry)
	assert.False(t, child.CanAddFunction(&mockFn{name: "identity"}, false))
	assert.False(t, child.CanAddAlias("filter", "identity"))
	assert.True(t, child.CanAddAlias("copy", "identity"))
}

func TestBuiltinFunctions(t *testing.T) {
	for _, name := range []string{"identity", "filter"} {
		fn, ok := registry.GetFunction(name)
		require.True(t, ok, name)
		assert.Equal(t, name, fn.Name())
		assert.NoError(t, fn.Validate())
		assert.Len(t, fn.Doc().ArgNames, fn.Arity().NArgs)
	}
	assert.Equal(t, compute.Unary(), compute.NewIdentity().Arity())
	assert.Equal(t, compute.Binary(), compute.NewFilter().Arity())
}

func TestValidateFunctionDoc(t *testing.T) {
	assert.ErrorIs(t, compute.ValidateFunctionSummary("ends with a point."), carrow.ErrInvalid)
	assert.ErrorIs(t, compute.ValidateFunctionSummary("two\nlines"), carrow.ErrInvalid)
	assert.ErrorIs(t, compute.ValidateFunctionDescription("trailing newline\n"), carrow.ErrInvalid)
	assert.NoError(t, compute.ValidateFunctionDescription("fine"))
}
