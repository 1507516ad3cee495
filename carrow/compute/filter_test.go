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
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paleolimbot/arrowvctrs/carrow"
	"github.com/paleolimbot/arrowvctrs/carrow/compute"
)

func (c *ComputeSuite) TestFilter() {
	for _, tc := range []struct {
		dt       arrow.DataType
		values   string
		mask     string
		expected string
	}{
		{arrow.PrimitiveTypes.Int32, `[1, 2, null, 4, 5]`, `[true, false, true, null, true]`, `[1, null, 5]`},
		{arrow.PrimitiveTypes.Float32, `[1, 2, 3]`, `[false, false, false]`, `[]`},
		{arrow.FixedWidthTypes.Boolean, `[true, true, false, null]`, `[true, true, true, true]`, `[true, true, false, null]`},
		{arrow.BinaryTypes.String, `["a", "bb", null, "ccc", "d"]`, `[false, true, true, true, false]`, `["bb", null, "ccc"]`},
		{arrow.BinaryTypes.LargeBinary, `["AQ==", "Ag==", "Aw=="]`, `[true, false, true]`, `["AQ==", "Aw=="]`},
		{arrow.Null, `[null, null, null]`, `[true, false, true]`, `[null, null]`},
	} {
		c.Run(tc.dt.String(), func() {
			values := c.fromJSON(tc.dt, tc.values)
			mask := c.fromJSON(arrow.FixedWidthTypes.Boolean, tc.mask)
			expected := c.fromJSON(tc.dt, tc.expected)

			got, err := c.call(compute.NewFilter(), c.arg(values), c.arg(mask))
			c.Require().NoError(err)
			c.Truef(array.Equal(expected, got), "expected %s, got %s", expected, got)
		})
	}
}

func (c *ComputeSuite) TestFilterSlicedInputs() {
	values := c.fromJSON(arrow.PrimitiveTypes.Int64, `[0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11]`)
	mask := c.fromJSON(arrow.FixedWidthTypes.Boolean,
		`[false, false, false, true, true, false, true, true, true, false, true, false]`)

	got, err := c.call(compute.NewFilter(), c.arg(c.slice(values, 2, 12)), c.arg(c.slice(mask, 2, 12)))
	c.Require().NoError(err)
	c.Truef(array.Equal(c.fromJSON(arrow.PrimitiveTypes.Int64, `[3, 4, 6, 7, 8, 10]`), got), "got %s", got)
}

func (c *ComputeSuite) TestFilterErrors() {
	values := c.fromJSON(arrow.PrimitiveTypes.Int32, `[1, 2, 3]`)
	fn := compute.NewFilter()

	_, err := c.call(fn, c.arg(values), c.arg(c.fromJSON(arrow.PrimitiveTypes.Int8, `[1, 0, 1]`)))
	c.ErrorIs(err, carrow.ErrTypeMismatch)
	c.Contains(fn.LastError(), "BOOL")

	_, err = c.call(fn, c.arg(values), c.arg(c.fromJSON(arrow.FixedWidthTypes.Boolean, `[true]`)))
	c.ErrorIs(err, carrow.ErrInvalid)

	nested := c.fromJSON(arrow.ListOf(arrow.PrimitiveTypes.Int32), `[[1], [2]]`)
	_, err = c.call(fn, c.arg(nested), c.arg(c.fromJSON(arrow.FixedWidthTypes.Boolean, `[true, false]`)))
	c.ErrorIs(err, carrow.ErrNotImplemented)

	_, err = c.call(fn, c.arg(values))
	c.ErrorIs(err, carrow.ErrInvalid)
	c.Contains(fn.LastError(), "accepts 2 arguments but 1 passed")
}
