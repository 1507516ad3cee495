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
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paleolimbot/arrowvctrs/carrow"
	"github.com/paleolimbot/arrowvctrs/carrow/cdata"
	"github.com/paleolimbot/arrowvctrs/carrow/compute"
	"github.com/stretchr/testify/suite"
)

type ComputeSuite struct {
	suite.Suite

	mem      *memory.CheckedAllocator
	ctx      context.Context
	releases []func()
}

func (c *ComputeSuite) SetupTest() {
	c.mem = memory.NewCheckedAllocator(memory.DefaultAllocator)
	c.ctx = compute.SetExecCtx(context.Background(), compute.ExecCtx{Alloc: c.mem})
	c.releases = nil
}

func (c *ComputeSuite) TearDownTest() {
	for i := len(c.releases) - 1; i >= 0; i-- {
		c.releases[i]()
	}
	c.mem.AssertSize(c.T(), 0)
}

func (c *ComputeSuite) fromJSON(dt arrow.DataType, data string) arrow.Array {
	arr, _, err := array.FromJSON(c.mem, dt, strings.NewReader(data))
	c.Require().NoError(err)
	c.releases = append(c.releases, arr.Release)
	return arr
}

func (c *ComputeSuite) slice(arr arrow.Array, i, j int64) arrow.Array {
	out := array.NewSlice(arr, i, j)
	c.releases = append(c.releases, out.Release)
	return out
}

func (c *ComputeSuite) arg(arr arrow.Array) compute.Arg {
	sc, out, err := cdata.ExportArray(arr)
	c.Require().NoError(err)
	c.releases = append(c.releases, sc.Release, out.Release)
	return compute.Arg{Schema: sc, Array: out}
}

// call runs fn and imports the result, or returns the error.
func (c *ComputeSuite) call(fn compute.Function, args ...compute.Arg) (arrow.Array, error) {
	var (
		sc  cdata.Schema
		out cdata.Array
	)
	if err := compute.Call(c.ctx, fn, args, &sc, &out); err != nil {
		c.True(sc.IsReleased())
		c.True(out.IsReleased())
		return nil, err
	}
	c.releases = append(c.releases, sc.Release, out.Release)
	c.Zero(out.Offset)

	res, err := cdata.ImportArray(&sc, &out)
	c.Require().NoError(err)
	c.releases = append(c.releases, res.Release)
	return res, nil
}

func (c *ComputeSuite) assertIdentity(input arrow.Array) {
	got, err := c.call(compute.NewIdentity(), c.arg(input))
	c.Require().NoError(err)
	c.Truef(array.Equal(input, got), "expected %s, got %s", input, got)
	c.Equal(input.NullN(), got.NullN())
}

func (c *ComputeSuite) TestIdentityFixedWidth() {
	for _, tc := range []struct {
		dt   arrow.DataType
		data string
	}{
		{arrow.PrimitiveTypes.Int8, `[1, -2, null, 4]`},
		{arrow.PrimitiveTypes.Uint16, `[1, 2, 3, null, 5]`},
		{arrow.PrimitiveTypes.Int32, `[null, 7, 8, 9, null, 11]`},
		{arrow.PrimitiveTypes.Float64, `[1.5, null, -2.25, 0]`},
		{arrow.FixedWidthTypes.Boolean, `[true, false, null, true, true, false, false, true, true]`},
		{arrow.FixedWidthTypes.Date32, `[18000, null, 18002]`},
		{&arrow.FixedSizeBinaryType{ByteWidth: 2}, `["YWI=", null, "Y2Q="]`},
		{&arrow.Decimal128Type{Precision: 10, Scale: 2}, `["1.25", null, "-3.50", "100.00"]`},
		{arrow.Null, `[null, null, null, null]`},
	} {
		c.Run(tc.dt.String(), func() {
			arr := c.fromJSON(tc.dt, tc.data)
			c.assertIdentity(arr)
			c.assertIdentity(c.slice(arr, 1, int64(arr.Len())))
		})
	}
}

func (c *ComputeSuite) TestIdentityVariableWidth() {
	for _, tc := range []struct {
		dt   arrow.DataType
		data string
	}{
		{arrow.BinaryTypes.String, `["a", "bb", null, "", "dddd", "e"]`},
		{arrow.BinaryTypes.LargeString, `["x", null, "yyy", "zz"]`},
		{arrow.BinaryTypes.Binary, `["AQI=", null, "AwQF"]`},
	} {
		c.Run(tc.dt.String(), func() {
			arr := c.fromJSON(tc.dt, tc.data)
			c.assertIdentity(arr)
			c.assertIdentity(c.slice(arr, 1, 3))
		})
	}
}

func (c *ComputeSuite) TestIdentityNested() {
	for _, tc := range []struct {
		dt   arrow.DataType
		data string
	}{
		{arrow.ListOf(arrow.PrimitiveTypes.Int64), `[[1, 2], [], null, [3, null, 5], [6]]`},
		{arrow.LargeListOf(arrow.BinaryTypes.String), `[["a"], null, ["b", "cc"], []]`},
		{arrow.FixedSizeListOf(2, arrow.PrimitiveTypes.Int16), `[[1, 2], null, [3, 4], [5, null]]`},
		{arrow.StructOf(
			arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
			arrow.Field{Name: "b", Type: arrow.BinaryTypes.String, Nullable: true},
		), `[{"a": 1, "b": "x"}, null, {"a": null, "b": "yy"}, {"a": 4, "b": null}]`},
		{arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Int32),
			`[[{"key": "a", "value": 1}], null, [], [{"key": "b", "value": 2}, {"key": "c", "value": null}]]`},
		{arrow.ListOf(arrow.StructOf(
			arrow.Field{Name: "s", Type: arrow.ListOf(arrow.PrimitiveTypes.Uint8), Nullable: true},
		)), `[[{"s": [1]}, {"s": null}], [], [{"s": [2, 3]}], null]`},
	} {
		c.Run(tc.dt.String(), func() {
			arr := c.fromJSON(tc.dt, tc.data)
			c.assertIdentity(arr)
			c.assertIdentity(c.slice(arr, 1, int64(arr.Len())))
		})
	}
}

func (c *ComputeSuite) TestIdentityUnions() {
	fields := []arrow.Field{
		{Name: "i", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "s", Type: arrow.BinaryTypes.String, Nullable: true},
	}
	for _, dt := range []arrow.DataType{
		arrow.SparseUnionOf(fields, []arrow.UnionTypeCode{2, 5}),
		arrow.DenseUnionOf(fields, []arrow.UnionTypeCode{2, 5}),
	} {
		c.Run(dt.String(), func() {
			arr := c.fromJSON(dt, `[[2, 1], [5, "a"], [2, 2], [2, null], [5, "bc"]]`)
			c.assertIdentity(arr)
			c.assertIdentity(c.slice(arr, 1, 4))
		})
	}
}

func (c *ComputeSuite) TestIdentityDenseUnionPacksGaps() {
	// both elements select child 0, skipping its middle value
	sc := &cdata.Schema{Format: "+ud:0", Children: []*cdata.Schema{{Format: "i", Name: "i"}}}
	in := &cdata.Array{
		Length: 2,
		Buffers: []*memory.Buffer{
			memory.NewBufferBytes([]byte{0, 0}),
			memory.NewBufferBytes(arrow.Int32Traits.CastToBytes([]int32{0, 2})),
		},
		Children: []*cdata.Array{{
			Length:  3,
			Buffers: []*memory.Buffer{nil, memory.NewBufferBytes(arrow.Int32Traits.CastToBytes([]int32{10, 11, 12}))},
		}},
	}
	c.releases = append(c.releases, sc.Release, in.Release)

	got, err := c.call(compute.NewIdentity(), compute.Arg{Schema: sc, Array: in})
	c.Require().NoError(err)

	union := got.(*array.DenseUnion)
	c.Equal([]int8{0, 0}, union.RawTypeCodes())
	c.Equal([]int32{0, 1}, union.RawValueOffsets())
	c.Equal([]int32{10, 12}, union.Field(0).(*array.Int32).Int32Values())
}

func (c *ComputeSuite) TestIdentityBooleanBits() {
	arr := c.fromJSON(arrow.FixedWidthTypes.Boolean,
		`[true, false, true, true, false, false, true, false, true, false]`)

	var (
		sc  cdata.Schema
		out cdata.Array
	)
	c.Require().NoError(compute.Call(c.ctx, compute.NewIdentity(), []compute.Arg{c.arg(arr)}, &sc, &out))
	c.releases = append(c.releases, sc.Release, out.Release)

	c.Equal("b", sc.Format)
	c.Require().Equal(2, out.NBuffers())
	c.Equal([]byte{0x4D, 0x01}, out.Buffers[1].Bytes())
	c.Zero(out.NullCount)
}

func (c *ComputeSuite) TestArityErrors() {
	arr := c.fromJSON(arrow.PrimitiveTypes.Int32, `[1, 2, 3]`)
	fn := compute.NewIdentity()

	for _, args := range [][]compute.Arg{nil, {c.arg(arr), c.arg(arr)}} {
		_, err := c.call(fn, args...)
		c.ErrorIs(err, carrow.ErrInvalid)
		c.Contains(fn.LastError(), "accepts 1 arguments")
	}

	// a successful call clears the previous error
	_, err := c.call(fn, c.arg(arr))
	c.NoError(err)
	c.Empty(fn.LastError())
}

func (c *ComputeSuite) TestReleasedFunction() {
	arr := c.fromJSON(arrow.PrimitiveTypes.Int32, `[1]`)
	fn := compute.NewIdentity()
	fn.Release()
	fn.Release()

	_, err := c.call(fn, c.arg(arr))
	c.ErrorIs(err, carrow.ErrInvalid)
	c.Contains(fn.LastError(), "released")
}

func (c *ComputeSuite) TestIdentityRejectsInvalidInput() {
	fn := compute.NewIdentity()
	_, err := c.call(fn, compute.Arg{Schema: &cdata.Schema{Format: "?"}, Array: &cdata.Array{}})
	c.ErrorIs(err, carrow.ErrUnsupportedType)
	c.NotEmpty(fn.LastError())

	_, err = c.call(fn, compute.Arg{Schema: nil, Array: &cdata.Array{}})
	c.ErrorIs(err, carrow.ErrInvalid)
}

func (c *ComputeSuite) TestIdentityComputeLengthCheck() {
	arr := c.fromJSON(arrow.PrimitiveTypes.Int32, `[1, 2]`)
	sc := &cdata.Schema{Format: "i"}
	out := &cdata.Array{Length: 3, Buffers: []*memory.Buffer{nil, memory.NewBufferBytes(make([]byte, 12))}}

	fn := compute.NewIdentity()
	err := fn.Compute(c.ctx, []compute.Arg{c.arg(arr)}, sc, out)
	c.ErrorIs(err, carrow.ErrOutOfRange)
	c.Contains(fn.LastError(), "exceeds input length")
}

func (c *ComputeSuite) TestCallFunction() {
	arr := c.fromJSON(arrow.BinaryTypes.String, `["a", null]`)

	var (
		sc  cdata.Schema
		out cdata.Array
	)
	c.Require().NoError(compute.CallFunction(c.ctx, "identity", []compute.Arg{c.arg(arr)}, &sc, &out))
	c.releases = append(c.releases, sc.Release, out.Release)
	c.EqualValues(2, out.Length)

	c.ErrorIs(compute.CallFunction(c.ctx, "no_such_function", nil, new(cdata.Schema), new(cdata.Array)), carrow.ErrKey)

	reg := compute.NewChildRegistry(compute.GetFunctionRegistry())
	c.True(reg.AddAlias("copy", "identity"))
	ctx := compute.SetExecCtx(context.Background(), compute.ExecCtx{Alloc: c.mem, Registry: reg})

	var (
		sc2  cdata.Schema
		out2 cdata.Array
	)
	c.Require().NoError(compute.CallFunction(ctx, "copy", []compute.Arg{c.arg(arr)}, &sc2, &out2))
	c.releases = append(c.releases, sc2.Release, out2.Release)
	c.EqualValues(1, out2.NullCount)
}

func (c *ComputeSuite) TestCallNilArguments() {
	c.ErrorIs(compute.Call(c.ctx, nil, nil, new(cdata.Schema), new(cdata.Array)), carrow.ErrInvalid)
	c.ErrorIs(compute.Call(c.ctx, compute.NewIdentity(), nil, nil, new(cdata.Array)), carrow.ErrInvalid)
}

func (c *ComputeSuite) TestDefaultExecCtx() {
	e := compute.GetExecCtx(context.Background())
	c.Same(compute.GetFunctionRegistry(), e.Registry)
	c.Equal(memory.DefaultAllocator, e.Alloc)

	e = compute.GetExecCtx(compute.SetExecCtx(context.Background(), compute.ExecCtx{}))
	c.NotNil(e.Alloc)
	c.NotNil(e.Registry)
}

func TestCompute(t *testing.T) {
	suite.Run(t, new(ComputeSuite))
}
