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

// Package status provides the error channel shared by the carrow packages:
// a coded error value and a reusable Status scratch that records the last
// failure of an operation.
package status

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/paleolimbot/arrowvctrs/carrow"
)

// Code classifies a failure.
type Code int8

const (
	OK Code = iota
	InvalidArgument
	UnsupportedType
	TypeMismatch
	OutOfRange
	AllocationFailure
	NotImplemented
	KeyError
)

var codeSentinels = [...]error{
	OK:                nil,
	InvalidArgument:   carrow.ErrInvalid,
	UnsupportedType:   carrow.ErrUnsupportedType,
	TypeMismatch:      carrow.ErrTypeMismatch,
	OutOfRange:        carrow.ErrOutOfRange,
	AllocationFailure: carrow.ErrAllocation,
	NotImplemented:    carrow.ErrNotImplemented,
	KeyError:          carrow.ErrKey,
}

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case InvalidArgument:
		return "InvalidArgument"
	case UnsupportedType:
		return "UnsupportedType"
	case TypeMismatch:
		return "TypeMismatch"
	case OutOfRange:
		return "OutOfRange"
	case AllocationFailure:
		return "AllocationFailure"
	case NotImplemented:
		return "NotImplemented"
	case KeyError:
		return "KeyError"
	}
	return "Code(" + strconv.Itoa(int(c)) + ")"
}

// Sentinel returns the carrow error that errors carrying this code match
// with errors.Is, or nil for OK.
func (c Code) Sentinel() error {
	if c < 0 || int(c) >= len(codeSentinels) {
		return nil
	}
	return codeSentinels[c]
}

// Error is an error with a Code and a formatted message.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string { return e.Code.String() + ": " + e.Msg }

// Is makes an *Error match the sentinel of its code.
func (e *Error) Is(target error) bool {
	s := e.Code.Sentinel()
	return s != nil && s == target
}

// Errorf builds an *Error with the given code.
func Errorf(code Code, format string, args ...interface{}) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf recovers the code of err: the code of an *Error in its chain, or
// the code whose sentinel err wraps. A non-nil error matching nothing is
// reported as InvalidArgument.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	for c := InvalidArgument; int(c) < len(codeSentinels); c++ {
		if errors.Is(err, codeSentinels[c]) {
			return c
		}
	}
	return InvalidArgument
}

// Status holds at most one in-flight error. The zero value is OK.
//
// A Status is owned by a single operation chain at a time: call Reset at the
// start of each operation, SetError on the first failure and return early
// while it is not OK.
type Status struct {
	code Code
	msg  string
}

// Reset returns s to OK.
func (s *Status) Reset() {
	s.code, s.msg = OK, ""
}

// SetError records a failure. Setting OK is equivalent to Reset.
func (s *Status) SetError(code Code, format string, args ...interface{}) {
	if code == OK {
		s.Reset()
		return
	}
	s.code, s.msg = code, fmt.Sprintf(format, args...)
}

// SetFromError records err, recovering its code with CodeOf. A nil error
// resets s.
func (s *Status) SetFromError(err error) {
	if err == nil {
		s.Reset()
		return
	}
	s.code, s.msg = CodeOf(err), err.Error()
}

func (s *Status) OK() bool        { return s.code == OK }
func (s *Status) Code() Code      { return s.code }
func (s *Status) Message() string { return s.msg }

// Err returns nil when s is OK and an *Error otherwise.
func (s *Status) Err() error {
	if s.code == OK {
		return nil
	}
	return &Error{Code: s.code, Msg: s.msg}
}
