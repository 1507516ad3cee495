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

import "errors"

var (
	// ErrInvalid is returned for nil, released or malformed inputs and for
	// calls with the wrong number of arguments.
	ErrInvalid = errors.New("invalid")
	// ErrUnsupportedType is returned when a format string does not name one
	// of the types in the registry.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrTypeMismatch is returned when two columns which must share a layout
	// do not.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrOutOfRange is returned when a position or length falls outside of
	// an array or one of its buffers.
	ErrOutOfRange = errors.New("out of range")
	// ErrAllocation is returned when a buffer could not be allocated.
	ErrAllocation     = errors.New("allocation failure")
	ErrNotImplemented = errors.New("not implemented")
	ErrKey            = errors.New("key error")
)
