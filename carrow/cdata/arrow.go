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

package cdata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paleolimbot/arrowvctrs/carrow"
)

// ExportField builds a Schema describing field.
func ExportField(field arrow.Field) (*Schema, error) {
	dt := field.Type
	if ext, ok := dt.(arrow.ExtensionType); ok {
		dt = ext.StorageType()
	}

	format, err := exportFormat(dt)
	if err != nil {
		return nil, err
	}

	out := &Schema{Format: format, Name: field.Name}
	if field.Nullable {
		out.Flags |= FlagNullable
	}
	if mt, ok := dt.(*arrow.MapType); ok && mt.KeysSorted {
		out.Flags |= FlagMapKeysSorted
	}
	if n := field.Metadata.Len(); n > 0 {
		out.Metadata = make([]KeyValue, n)
		for i := range out.Metadata {
			out.Metadata[i] = KeyValue{Key: field.Metadata.Keys()[i], Value: field.Metadata.Values()[i]}
		}
	}

	if nt, ok := dt.(arrow.NestedType); ok {
		out.Children = make([]*Schema, len(nt.Fields()))
		for i, f := range nt.Fields() {
			if out.Children[i], err = ExportField(f); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// ExportArray builds a schema and array node pair over arr without copying:
// the array node holds a new reference on each of arr's buffers, so arr and
// the node can be released independently.
func ExportArray(arr arrow.Array) (*Schema, *Array, error) {
	schema, err := ExportField(arrow.Field{Type: arr.DataType(), Nullable: true})
	if err != nil {
		return nil, nil, err
	}

	out := exportData(arr.Data())
	return schema, out, nil
}

func exportData(data arrow.ArrayData) *Array {
	dt := data.DataType()
	if ext, ok := dt.(arrow.ExtensionType); ok {
		dt = ext.StorageType()
	}

	out := &Array{
		Length:    int64(data.Len()),
		NullCount: exportNullCount(data),
		Offset:    int64(data.Offset()),
	}

	// unions and the null type keep an always-null first buffer in arrow-go
	// which does not exist in the C data interface. The null type lists it
	// in its layout, unions do not.
	nbufs := len(dt.Layout().Buffers)
	bufs := data.Buffers()
	if !carrowHasValidity(dt.ID()) {
		if dt.ID() == arrow.NULL {
			nbufs--
		}
		if len(bufs) > 0 {
			bufs = bufs[1:]
		}
	}

	if nbufs > 0 {
		out.Buffers = make([]*memory.Buffer, nbufs)
		for i := 0; i < nbufs && i < len(bufs); i++ {
			if bufs[i] != nil {
				bufs[i].Retain()
				out.Buffers[i] = bufs[i]
			}
		}
	}

	if children := data.Children(); len(children) > 0 {
		out.Children = make([]*Array, len(children))
		for i, c := range children {
			out.Children[i] = exportData(c)
		}
	}
	return out
}

// exportNullCount resolves the null count of slices, which arrow-go leaves
// unknown until asked.
func exportNullCount(data arrow.ArrayData) int64 {
	switch data.DataType().ID() {
	case arrow.NULL:
		return int64(data.Len())
	case arrow.SPARSE_UNION, arrow.DENSE_UNION:
		return 0
	}
	if n := data.NullN(); n >= 0 {
		return int64(n)
	}
	bufs := data.Buffers()
	if len(bufs) == 0 || bufs[0] == nil || bufs[0].Len() == 0 {
		return 0
	}
	return int64(data.Len() - bitutil.CountSetBits(bufs[0].Bytes(), data.Offset(), data.Len()))
}

func carrowHasValidity(id arrow.Type) bool {
	switch id {
	case arrow.NULL, arrow.SPARSE_UNION, arrow.DENSE_UNION:
		return false
	}
	return true
}

func exportFormat(dt arrow.DataType) (string, error) {
	switch dt := dt.(type) {
	case *arrow.NullType:
		return "n", nil
	case *arrow.BooleanType:
		return "b", nil
	case *arrow.Int8Type:
		return "c", nil
	case *arrow.Uint8Type:
		return "C", nil
	case *arrow.Int16Type:
		return "s", nil
	case *arrow.Uint16Type:
		return "S", nil
	case *arrow.Int32Type:
		return "i", nil
	case *arrow.Uint32Type:
		return "I", nil
	case *arrow.Int64Type:
		return "l", nil
	case *arrow.Uint64Type:
		return "L", nil
	case *arrow.Float16Type:
		return "e", nil
	case *arrow.Float32Type:
		return "f", nil
	case *arrow.Float64Type:
		return "g", nil
	case *arrow.FixedSizeBinaryType:
		return "w:" + strconv.Itoa(dt.ByteWidth), nil
	case *arrow.Decimal128Type:
		return fmt.Sprintf("d:%d,%d", dt.Precision, dt.Scale), nil
	case *arrow.Decimal256Type:
		return fmt.Sprintf("d:%d,%d,256", dt.Precision, dt.Scale), nil
	case *arrow.BinaryType:
		return "z", nil
	case *arrow.LargeBinaryType:
		return "Z", nil
	case *arrow.StringType:
		return "u", nil
	case *arrow.LargeStringType:
		return "U", nil
	case *arrow.Date32Type:
		return "tdD", nil
	case *arrow.Date64Type:
		return "tdm", nil
	case *arrow.Time32Type:
		return "tt" + unitCode(dt.Unit), nil
	case *arrow.Time64Type:
		return "tt" + unitCode(dt.Unit), nil
	case *arrow.TimestampType:
		return "ts" + unitCode(dt.Unit) + ":" + dt.TimeZone, nil
	case *arrow.DurationType:
		return "tD" + unitCode(dt.Unit), nil
	case *arrow.MonthIntervalType:
		return "tiM", nil
	case *arrow.DayTimeIntervalType:
		return "tiD", nil
	case *arrow.MonthDayNanoIntervalType:
		return "tin", nil
	case *arrow.ListType:
		return "+l", nil
	case *arrow.LargeListType:
		return "+L", nil
	case *arrow.FixedSizeListType:
		return "+w:" + strconv.Itoa(int(dt.Len())), nil
	case *arrow.StructType:
		return "+s", nil
	case *arrow.MapType:
		return "+m", nil
	case arrow.UnionType:
		var b strings.Builder
		if dt.Mode() == arrow.SparseMode {
			b.WriteString("+us:")
		} else {
			b.WriteString("+ud:")
		}
		for i, c := range dt.TypeCodes() {
			if i != 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(int(c)))
		}
		return b.String(), nil
	}
	return "", fmt.Errorf("%w: cannot export arrow type %s", carrow.ErrUnsupportedType, dt)
}

func unitCode(u arrow.TimeUnit) string {
	switch u {
	case arrow.Second:
		return "s"
	case arrow.Millisecond:
		return "m"
	case arrow.Microsecond:
		return "u"
	}
	return "n"
}

// ImportField builds the arrow-go field described by schema.
func ImportField(schema *Schema) (arrow.Field, error) {
	if schema.IsReleased() {
		return arrow.Field{}, fmt.Errorf("%w: schema is nil or released", carrow.ErrInvalid)
	}

	f, err := carrow.ParseFormat(schema.Format)
	if err != nil {
		return arrow.Field{}, err
	}

	children := make([]arrow.Field, len(schema.Children))
	for i, c := range schema.Children {
		if children[i], err = ImportField(c); err != nil {
			return arrow.Field{}, err
		}
	}

	ret := arrow.Field{Name: schema.Name, Nullable: schema.Flags&FlagNullable != 0}
	if len(schema.Metadata) > 0 {
		keys, vals := make([]string, len(schema.Metadata)), make([]string, len(schema.Metadata))
		for i, kv := range schema.Metadata {
			keys[i], vals[i] = kv.Key, kv.Value
		}
		ret.Metadata = arrow.NewMetadata(keys, vals)
	}

	checkChildren := func(n int) error {
		if len(children) != n {
			return fmt.Errorf("%w: format '%s' expects %d children, schema has %d",
				carrow.ErrInvalid, schema.Format, n, len(children))
		}
		return nil
	}

	switch f.Type {
	case carrow.NA:
		ret.Type = arrow.Null
	case carrow.BOOL:
		ret.Type = arrow.FixedWidthTypes.Boolean
	case carrow.UINT8:
		ret.Type = arrow.PrimitiveTypes.Uint8
	case carrow.INT8:
		ret.Type = arrow.PrimitiveTypes.Int8
	case carrow.UINT16:
		ret.Type = arrow.PrimitiveTypes.Uint16
	case carrow.INT16:
		ret.Type = arrow.PrimitiveTypes.Int16
	case carrow.UINT32:
		ret.Type = arrow.PrimitiveTypes.Uint32
	case carrow.INT32:
		ret.Type = arrow.PrimitiveTypes.Int32
	case carrow.UINT64:
		ret.Type = arrow.PrimitiveTypes.Uint64
	case carrow.INT64:
		ret.Type = arrow.PrimitiveTypes.Int64
	case carrow.HALF_FLOAT:
		ret.Type = arrow.FixedWidthTypes.Float16
	case carrow.FLOAT:
		ret.Type = arrow.PrimitiveTypes.Float32
	case carrow.DOUBLE:
		ret.Type = arrow.PrimitiveTypes.Float64
	case carrow.STRING:
		ret.Type = arrow.BinaryTypes.String
	case carrow.BINARY:
		ret.Type = arrow.BinaryTypes.Binary
	case carrow.LARGE_STRING:
		ret.Type = arrow.BinaryTypes.LargeString
	case carrow.LARGE_BINARY:
		ret.Type = arrow.BinaryTypes.LargeBinary
	case carrow.FIXED_SIZE_BINARY:
		ret.Type = &arrow.FixedSizeBinaryType{ByteWidth: int(f.ByteWidth)}
	case carrow.DATE32:
		ret.Type = arrow.FixedWidthTypes.Date32
	case carrow.DATE64:
		ret.Type = arrow.FixedWidthTypes.Date64
	case carrow.TIMESTAMP:
		ret.Type = &arrow.TimestampType{Unit: arrow.TimeUnit(f.Unit), TimeZone: f.TimeZone}
	case carrow.TIME32:
		ret.Type = &arrow.Time32Type{Unit: arrow.TimeUnit(f.Unit)}
	case carrow.TIME64:
		ret.Type = &arrow.Time64Type{Unit: arrow.TimeUnit(f.Unit)}
	case carrow.DURATION:
		ret.Type = &arrow.DurationType{Unit: arrow.TimeUnit(f.Unit)}
	case carrow.INTERVAL_MONTHS:
		ret.Type = arrow.FixedWidthTypes.MonthInterval
	case carrow.INTERVAL_DAY_TIME:
		ret.Type = arrow.FixedWidthTypes.DayTimeInterval
	case carrow.INTERVAL_MONTH_DAY_NANO:
		ret.Type = arrow.FixedWidthTypes.MonthDayNanoInterval
	case carrow.DECIMAL128:
		ret.Type = &arrow.Decimal128Type{Precision: f.Precision, Scale: f.Scale}
	case carrow.DECIMAL256:
		ret.Type = &arrow.Decimal256Type{Precision: f.Precision, Scale: f.Scale}
	case carrow.LIST:
		if err := checkChildren(1); err != nil {
			return ret, err
		}
		ret.Type = arrow.ListOfField(children[0])
	case carrow.LARGE_LIST:
		if err := checkChildren(1); err != nil {
			return ret, err
		}
		ret.Type = arrow.LargeListOfField(children[0])
	case carrow.FIXED_SIZE_LIST:
		if err := checkChildren(1); err != nil {
			return ret, err
		}
		ret.Type = arrow.FixedSizeListOfField(f.ListSize, children[0])
	case carrow.STRUCT:
		ret.Type = arrow.StructOf(children...)
	case carrow.MAP:
		if err := checkChildren(1); err != nil {
			return ret, err
		}
		st, ok := children[0].Type.(*arrow.StructType)
		if !ok || st.NumFields() != 2 {
			return ret, fmt.Errorf("%w: map entries must be a struct of key and item", carrow.ErrInvalid)
		}
		mt := arrow.MapOf(st.Field(0).Type, st.Field(1).Type)
		mt.KeysSorted = schema.Flags&FlagMapKeysSorted != 0
		ret.Type = mt
	case carrow.SPARSE_UNION, carrow.DENSE_UNION:
		if err := checkChildren(len(f.TypeCodes)); err != nil {
			return ret, err
		}
		codes := make([]arrow.UnionTypeCode, len(f.TypeCodes))
		for i, c := range f.TypeCodes {
			codes[i] = arrow.UnionTypeCode(c)
		}
		if f.Type == carrow.SPARSE_UNION {
			ret.Type = arrow.SparseUnionOf(children, codes)
		} else {
			ret.Type = arrow.DenseUnionOf(children, codes)
		}
	default:
		return ret, fmt.Errorf("%w: format '%s'", carrow.ErrUnsupportedType, schema.Format)
	}
	return ret, nil
}

// ImportArray builds an arrow-go array over the buffers of arr, interpreted
// with the type described by schema. The result holds its own references
// to the buffers and must be released by the caller.
func ImportArray(schema *Schema, arr *Array) (arrow.Array, error) {
	field, err := ImportField(schema)
	if err != nil {
		return nil, err
	}
	if arr.IsReleased() {
		return nil, fmt.Errorf("%w: array is nil or released", carrow.ErrInvalid)
	}

	data, err := importData(field.Type, arr)
	if err != nil {
		return nil, err
	}
	defer data.Release()
	return array.MakeFromData(data), nil
}

func importData(dt arrow.DataType, arr *Array) (arrow.ArrayData, error) {
	var fields []arrow.Field
	if nt, ok := dt.(arrow.NestedType); ok {
		fields = nt.Fields()
	}
	if len(fields) != len(arr.Children) {
		return nil, fmt.Errorf("%w: type %s expects %d children, array has %d",
			carrow.ErrInvalid, dt, len(fields), len(arr.Children))
	}

	children := make([]arrow.ArrayData, len(arr.Children))
	for i, c := range arr.Children {
		d, err := importData(fields[i].Type, c)
		if err != nil {
			for _, prev := range children[:i] {
				prev.Release()
			}
			return nil, err
		}
		children[i] = d
	}
	defer func() {
		for _, c := range children {
			c.Release()
		}
	}()

	bufs := arr.Buffers
	nulls := int(arr.NullCount)
	switch dt.ID() {
	case arrow.NULL:
		bufs, nulls = []*memory.Buffer{nil}, int(arr.Length)
	case arrow.SPARSE_UNION, arrow.DENSE_UNION:
		bufs, nulls = append([]*memory.Buffer{nil}, bufs...), 0
	}

	return array.NewData(dt, int(arr.Length), bufs, children, nulls, int(arr.Offset)), nil
}
