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

package carrow

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// TimeUnit is the resolution of the temporal types. The order matches the
// order used by arrow-go.
type TimeUnit int8

const (
	Second TimeUnit = iota
	Millisecond
	Microsecond
	Nanosecond
)

var unitFormatCodes = [...]byte{Second: 's', Millisecond: 'm', Microsecond: 'u', Nanosecond: 'n'}

func (u TimeUnit) String() string {
	switch u {
	case Second:
		return "s"
	case Millisecond:
		return "ms"
	case Microsecond:
		return "us"
	case Nanosecond:
		return "ns"
	}
	return "TimeUnit(" + strconv.Itoa(int(u)) + ")"
}

// Format is the parsed form of a C data interface format string: the
// logical type together with the parameters that some types carry.
type Format struct {
	Type Type

	// ByteWidth is the width of a FIXED_SIZE_BINARY element.
	ByteWidth int32
	// Precision and Scale of DECIMAL128 and DECIMAL256.
	Precision, Scale int32
	// Unit of TIME32, TIME64, TIMESTAMP and DURATION.
	Unit TimeUnit
	// TimeZone of a TIMESTAMP, possibly empty.
	TimeZone string
	// ListSize is the number of child elements per FIXED_SIZE_LIST value.
	ListSize int32
	// TypeCodes of a union, one per child in child order.
	TypeCodes []int8
}

// BitWidth returns the width in bits of one element of a fixed-width
// format, or -1 for variable width and nested formats.
func (f Format) BitWidth() int {
	if f.Type == FIXED_SIZE_BINARY {
		return int(f.ByteWidth) * 8
	}
	return f.Type.BitWidth()
}

// Equal reports whether both formats describe the same type with the same
// parameters.
func (f Format) Equal(other Format) bool {
	if f.Type != other.Type || f.ByteWidth != other.ByteWidth ||
		f.Precision != other.Precision || f.Scale != other.Scale ||
		f.Unit != other.Unit || f.TimeZone != other.TimeZone ||
		f.ListSize != other.ListSize || len(f.TypeCodes) != len(other.TypeCodes) {
		return false
	}
	for i, c := range f.TypeCodes {
		if other.TypeCodes[i] != c {
			return false
		}
	}
	return true
}

// String encodes f back into its format string.
func (f Format) String() string {
	switch f.Type {
	case FIXED_SIZE_BINARY:
		return "w:" + strconv.Itoa(int(f.ByteWidth))
	case DECIMAL128:
		return fmt.Sprintf("d:%d,%d", f.Precision, f.Scale)
	case DECIMAL256:
		return fmt.Sprintf("d:%d,%d,256", f.Precision, f.Scale)
	case TIME32, TIME64:
		return "tt" + string(unitFormatCodes[f.Unit])
	case DURATION:
		return "tD" + string(unitFormatCodes[f.Unit])
	case TIMESTAMP:
		return "ts" + string(unitFormatCodes[f.Unit]) + ":" + f.TimeZone
	case FIXED_SIZE_LIST:
		return "+w:" + strconv.Itoa(int(f.ListSize))
	case SPARSE_UNION, DENSE_UNION:
		var b strings.Builder
		if f.Type == SPARSE_UNION {
			b.WriteString("+us:")
		} else {
			b.WriteString("+ud:")
		}
		for i, c := range f.TypeCodes {
			if i != 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(int(c)))
		}
		return b.String()
	}
	if s, ok := simpleTypeToFormat[f.Type]; ok {
		return s
	}
	return ""
}

// formats that carry no parameters
var formatToSimpleType = map[string]Format{
	"n":   {Type: NA},
	"b":   {Type: BOOL},
	"c":   {Type: INT8},
	"C":   {Type: UINT8},
	"s":   {Type: INT16},
	"S":   {Type: UINT16},
	"i":   {Type: INT32},
	"I":   {Type: UINT32},
	"l":   {Type: INT64},
	"L":   {Type: UINT64},
	"e":   {Type: HALF_FLOAT},
	"f":   {Type: FLOAT},
	"g":   {Type: DOUBLE},
	"z":   {Type: BINARY},
	"Z":   {Type: LARGE_BINARY},
	"u":   {Type: STRING},
	"U":   {Type: LARGE_STRING},
	"tdD": {Type: DATE32},
	"tdm": {Type: DATE64},
	"tts": {Type: TIME32, Unit: Second},
	"ttm": {Type: TIME32, Unit: Millisecond},
	"ttu": {Type: TIME64, Unit: Microsecond},
	"ttn": {Type: TIME64, Unit: Nanosecond},
	"tDs": {Type: DURATION, Unit: Second},
	"tDm": {Type: DURATION, Unit: Millisecond},
	"tDu": {Type: DURATION, Unit: Microsecond},
	"tDn": {Type: DURATION, Unit: Nanosecond},
	"tiM": {Type: INTERVAL_MONTHS},
	"tiD": {Type: INTERVAL_DAY_TIME},
	"tin": {Type: INTERVAL_MONTH_DAY_NANO},
	"+l":  {Type: LIST},
	"+L":  {Type: LARGE_LIST},
	"+s":  {Type: STRUCT},
	"+m":  {Type: MAP},
}

var simpleTypeToFormat = map[Type]string{}

func init() {
	for k, v := range formatToSimpleType {
		switch v.Type {
		case TIME32, TIME64, DURATION:
			// encoded together with their unit
			continue
		}
		simpleTypeToFormat[v.Type] = k
	}
}

// TypeOf returns the logical type named by a format string. Any format
// outside of the registry fails with ErrUnsupportedType.
func TypeOf(format string) (Type, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return NA, err
	}
	return f.Type, nil
}

// ParseFormat parses a format string into its type and parameters.
func ParseFormat(format string) (Format, error) {
	if f, ok := formatToSimpleType[format]; ok {
		return f, nil
	}

	name, params, hasParams := strings.Cut(format, ":")
	if !hasParams {
		return Format{}, fmt.Errorf("%w: format '%s'", ErrUnsupportedType, format)
	}

	switch name {
	case "w":
		width, err := strconv.ParseInt(params, 10, 32)
		if err != nil || width < 0 {
			return Format{}, xerrors.Errorf("could not parse byte width in '%s': %w", format, ErrUnsupportedType)
		}
		return Format{Type: FIXED_SIZE_BINARY, ByteWidth: int32(width)}, nil
	case "d":
		return parseDecimal(format, params)
	case "tss", "tsm", "tsu", "tsn":
		f := Format{Type: TIMESTAMP, TimeZone: params}
		switch name[2] {
		case 's':
			f.Unit = Second
		case 'm':
			f.Unit = Millisecond
		case 'u':
			f.Unit = Microsecond
		case 'n':
			f.Unit = Nanosecond
		}
		return f, nil
	case "+w":
		size, err := strconv.ParseInt(params, 10, 32)
		if err != nil || size < 0 {
			return Format{}, xerrors.Errorf("could not parse list size in '%s': %w", format, ErrUnsupportedType)
		}
		return Format{Type: FIXED_SIZE_LIST, ListSize: int32(size)}, nil
	case "+us", "+ud":
		f := Format{Type: SPARSE_UNION}
		if name == "+ud" {
			f.Type = DENSE_UNION
		}
		if params == "" {
			return f, nil
		}
		codes := strings.Split(params, ",")
		f.TypeCodes = make([]int8, 0, len(codes))
		for _, c := range codes {
			v, err := strconv.ParseInt(c, 10, 8)
			if err != nil || v < 0 {
				return Format{}, xerrors.Errorf("invalid union type code '%s' in '%s': %w", c, format, ErrUnsupportedType)
			}
			f.TypeCodes = append(f.TypeCodes, int8(v))
		}
		return f, nil
	}

	return Format{}, fmt.Errorf("%w: format '%s'", ErrUnsupportedType, format)
}

// decimal types are d:<precision>,<scale>[,<bitwidth>] with 128 assumed when
// the bit width is left out
func parseDecimal(format, params string) (Format, error) {
	props := strings.Split(params, ",")
	if len(props) < 2 || len(props) > 3 {
		return Format{}, xerrors.Errorf("invalid decimal format '%s', wrong number of properties: %w", format, ErrUnsupportedType)
	}

	bitwidth := int64(128)
	if len(props) == 3 {
		var err error
		if bitwidth, err = strconv.ParseInt(props[2], 10, 32); err != nil {
			return Format{}, xerrors.Errorf("could not parse decimal bitwidth in '%s': %w", format, ErrUnsupportedType)
		}
	}

	precision, err := strconv.ParseInt(props[0], 10, 32)
	if err != nil {
		return Format{}, xerrors.Errorf("could not parse decimal precision in '%s': %w", format, ErrUnsupportedType)
	}
	scale, err := strconv.ParseInt(props[1], 10, 32)
	if err != nil {
		return Format{}, xerrors.Errorf("could not parse decimal scale in '%s': %w", format, ErrUnsupportedType)
	}

	f := Format{Precision: int32(precision), Scale: int32(scale)}
	switch bitwidth {
	case 128:
		f.Type = DECIMAL128
	case 256:
		f.Type = DECIMAL256
	default:
		return Format{}, xerrors.Errorf("only decimal128 and decimal256 are supported, got '%s': %w", format, ErrUnsupportedType)
	}
	return f, nil
}
