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

import "strconv"

// Type is a logical type. The set is closed and ordered; the numeric value of a
// tag is stable and may be stored or exchanged.
type Type int8

const (
	// NA is a type having no physical storage
	NA Type = iota

	// BOOL is 1 bit, LSB bit-packed ordering
	BOOL

	// UINT8 is an unsigned 8-bit little-endian integer
	UINT8

	// INT8 is a signed 8-bit little-endian integer
	INT8

	// UINT16 is an unsigned 16-bit little-endian integer
	UINT16

	// INT16 is a signed 16-bit little-endian integer
	INT16

	// UINT32 is an unsigned 32-bit little-endian integer
	UINT32

	// INT32 is a signed 32-bit little-endian integer
	INT32

	// UINT64 is an unsigned 64-bit little-endian integer
	UINT64

	// INT64 is a signed 64-bit little-endian integer
	INT64

	// HALF_FLOAT is a 2-byte floating point value
	HALF_FLOAT

	// FLOAT is a 4-byte floating point value
	FLOAT

	// DOUBLE is an 8-byte floating point value
	DOUBLE

	// STRING is a UTF8 variable-length string
	STRING

	// BINARY is variable-length bytes (no guarantee of UTF8-ness)
	BINARY

	// FIXED_SIZE_BINARY is binary where each value occupies the same number of bytes
	FIXED_SIZE_BINARY

	// DATE32 is int32 days since the UNIX epoch
	DATE32

	// DATE64 is int64 milliseconds since the UNIX epoch
	DATE64

	// TIMESTAMP is an exact timestamp encoded with int64 since UNIX epoch
	TIMESTAMP

	// TIME32 is a signed 32-bit integer, representing either seconds or
	// milliseconds since midnight
	TIME32

	// TIME64 is a signed 64-bit integer, representing either microseconds or
	// nanoseconds since midnight
	TIME64

	// INTERVAL_MONTHS is YEAR_MONTH interval in SQL style
	INTERVAL_MONTHS

	// INTERVAL_DAY_TIME is DAY_TIME interval in SQL style
	INTERVAL_DAY_TIME

	// DECIMAL128 is a precision- and scale-based decimal type with 128 bits
	DECIMAL128

	// DECIMAL256 is a precision- and scale-based decimal type with 256 bits
	DECIMAL256

	// LIST is a list of some logical data type
	LIST

	// STRUCT of logical types
	STRUCT

	// SPARSE_UNION of logical types
	SPARSE_UNION

	// DENSE_UNION of logical types
	DENSE_UNION

	// MAP is a repeated struct logical type
	MAP

	// FIXED_SIZE_LIST is a list of some logical type with a fixed number of
	// elements per value
	FIXED_SIZE_LIST

	// DURATION is a measure of elapsed time in either seconds, milliseconds,
	// microseconds or nanoseconds
	DURATION

	// LARGE_STRING is like STRING, but with 64-bit offsets
	LARGE_STRING

	// LARGE_BINARY is like BINARY, but with 64-bit offsets
	LARGE_BINARY

	// LARGE_LIST is like LIST, but with 64-bit offsets
	LARGE_LIST

	// INTERVAL_MONTH_DAY_NANO is a calendar interval with three fields
	INTERVAL_MONTH_DAY_NANO

	// MAX_ID bounds the set of valid types; it is never the type of a column.
	MAX_ID

	// DECIMAL is an alias of DECIMAL128
	DECIMAL = DECIMAL128
)

var typeNames = [...]string{
	NA:                      "NA",
	BOOL:                    "BOOL",
	UINT8:                   "UINT8",
	INT8:                    "INT8",
	UINT16:                  "UINT16",
	INT16:                   "INT16",
	UINT32:                  "UINT32",
	INT32:                   "INT32",
	UINT64:                  "UINT64",
	INT64:                   "INT64",
	HALF_FLOAT:              "HALF_FLOAT",
	FLOAT:                   "FLOAT",
	DOUBLE:                  "DOUBLE",
	STRING:                  "STRING",
	BINARY:                  "BINARY",
	FIXED_SIZE_BINARY:       "FIXED_SIZE_BINARY",
	DATE32:                  "DATE32",
	DATE64:                  "DATE64",
	TIMESTAMP:               "TIMESTAMP",
	TIME32:                  "TIME32",
	TIME64:                  "TIME64",
	INTERVAL_MONTHS:         "INTERVAL_MONTHS",
	INTERVAL_DAY_TIME:       "INTERVAL_DAY_TIME",
	DECIMAL128:              "DECIMAL128",
	DECIMAL256:              "DECIMAL256",
	LIST:                    "LIST",
	STRUCT:                  "STRUCT",
	SPARSE_UNION:            "SPARSE_UNION",
	DENSE_UNION:             "DENSE_UNION",
	MAP:                     "MAP",
	FIXED_SIZE_LIST:         "FIXED_SIZE_LIST",
	DURATION:                "DURATION",
	LARGE_STRING:            "LARGE_STRING",
	LARGE_BINARY:            "LARGE_BINARY",
	LARGE_LIST:              "LARGE_LIST",
	INTERVAL_MONTH_DAY_NANO: "INTERVAL_MONTH_DAY_NANO",
}

func (t Type) String() string {
	if t < 0 || t >= MAX_ID {
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
	return typeNames[t]
}

// IsValid reports whether t is one of the registered logical types.
func (t Type) IsValid() bool { return t >= NA && t < MAX_ID }

// BitWidth returns the width in bits of a single element of a fixed-width
// type, or -1 when the width is variable or depends on format parameters
// (fixed-size binary, decimals are reported here with their nominal width).
func (t Type) BitWidth() int {
	switch t {
	case NA:
		return 0
	case BOOL:
		return 1
	case UINT8, INT8:
		return 8
	case UINT16, INT16, HALF_FLOAT:
		return 16
	case UINT32, INT32, FLOAT, DATE32, TIME32, INTERVAL_MONTHS:
		return 32
	case UINT64, INT64, DOUBLE, DATE64, TIMESTAMP, TIME64, DURATION, INTERVAL_DAY_TIME:
		return 64
	case DECIMAL128, INTERVAL_MONTH_DAY_NANO:
		return 128
	case DECIMAL256:
		return 256
	}
	return -1
}

// IsUnion reports whether t is either of the union types.
func IsUnion(t Type) bool { return t == SPARSE_UNION || t == DENSE_UNION }

// IsBinaryLike reports whether t stores variable-length values with
// 32-bit offsets.
func IsBinaryLike(t Type) bool { return t == STRING || t == BINARY }

// IsLargeBinaryLike reports whether t stores variable-length values with
// 64-bit offsets.
func IsLargeBinaryLike(t Type) bool { return t == LARGE_STRING || t == LARGE_BINARY }

// IsListLike reports whether t is a list type whose values are delimited
// by an offsets buffer.
func IsListLike(t Type) bool { return t == LIST || t == LARGE_LIST || t == MAP }

// IsNested reports whether columns of type t have child columns.
func IsNested(t Type) bool {
	switch t {
	case LIST, LARGE_LIST, FIXED_SIZE_LIST, MAP, STRUCT, SPARSE_UNION, DENSE_UNION:
		return true
	}
	return false
}

// HasValidityBitmap reports whether the first buffer of a column of type t
// is a validity bitmap. Unions carry no bitmap of their own and the null
// type has no buffers at all.
func HasValidityBitmap(t Type) bool {
	switch t {
	case NA, SPARSE_UNION, DENSE_UNION:
		return false
	}
	return true
}
