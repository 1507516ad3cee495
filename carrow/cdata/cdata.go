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

// Package cdata holds the schema and array nodes of the Arrow C data
// interface as plain Go values.
//
// The layout of the nodes follows struct ArrowSchema and struct ArrowArray:
// a Schema carries the format string and child schemas, an Array carries a
// length, a null count, a structural offset and an ordered list of buffers.
// Buffers are arrow-go memory.Buffer values so that ownership is tracked by
// reference counts; releasing an Array drops its references exactly once.
package cdata

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paleolimbot/arrowvctrs/carrow"
	"golang.org/x/exp/slices"
)

// Schema flags, as defined by the C data interface.
const (
	FlagDictionaryOrdered int64 = 1
	FlagNullable          int64 = 2
	FlagMapKeysSorted     int64 = 4
)

// UnknownNullCount may be stored in Array.NullCount when the number of
// nulls has not been computed.
const UnknownNullCount = -1

type KeyValue struct {
	Key, Value string
}

// Schema describes the logical type and child layout of a column.
type Schema struct {
	Format     string
	Name       string
	Metadata   []KeyValue
	Flags      int64
	Children   []*Schema
	Dictionary *Schema

	released bool
}

func (s *Schema) NumChildren() int { return len(s.Children) }

// IsReleased reports whether Release has been called on s. A nil schema is
// reported as released.
func (s *Schema) IsReleased() bool { return s == nil || s.released }

// Release marks s and its children as released. Calling it again is a
// no-op.
func (s *Schema) Release() {
	if s.IsReleased() {
		return
	}
	for _, c := range s.Children {
		c.Release()
	}
	s.Dictionary.Release()
	s.Children, s.Dictionary = nil, nil
	s.released = true
}

// Array is the runtime payload of a column.
type Array struct {
	Length    int64
	NullCount int64
	Offset    int64
	// Buffers in slot order; entries may be nil when a buffer is absent.
	Buffers    []*memory.Buffer
	Children   []*Array
	Dictionary *Array

	released bool
}

// NBuffers returns the number of buffer slots attached to a.
func (a *Array) NBuffers() int { return len(a.Buffers) }

func (a *Array) NumChildren() int { return len(a.Children) }

// IsReleased reports whether Release has been called on a. A nil array is
// reported as released.
func (a *Array) IsReleased() bool { return a == nil || a.released }

// Release drops the references a holds on its buffers, then releases its
// children. Calling it again is a no-op.
func (a *Array) Release() {
	if a.IsReleased() {
		return
	}
	for _, b := range a.Buffers {
		if b != nil {
			b.Release()
		}
	}
	for _, c := range a.Children {
		c.Release()
	}
	a.Dictionary.Release()
	a.Buffers, a.Children, a.Dictionary = nil, nil, nil
	a.released = true
}

// CopySchema deep-copies src into dst so that both can be released
// independently.
func CopySchema(dst, src *Schema) error {
	if dst == nil {
		return fmt.Errorf("%w: nil destination schema", carrow.ErrInvalid)
	}
	if src.IsReleased() {
		return fmt.Errorf("%w: source schema is nil or released", carrow.ErrInvalid)
	}

	*dst = Schema{
		Format:   src.Format,
		Name:     src.Name,
		Metadata: slices.Clone(src.Metadata),
		Flags:    src.Flags,
	}

	if len(src.Children) > 0 {
		dst.Children = make([]*Schema, len(src.Children))
		for i, c := range src.Children {
			dst.Children[i] = new(Schema)
			if err := CopySchema(dst.Children[i], c); err != nil {
				return err
			}
		}
	}

	if src.Dictionary != nil {
		dst.Dictionary = new(Schema)
		return CopySchema(dst.Dictionary, src.Dictionary)
	}
	return nil
}

// CopyPtype copies the shape of src into dst: lengths, offsets and the
// same tree of children, without any buffers. The null count of the copy
// is zero since no values exist yet.
func CopyPtype(dst, src *Array) error {
	if dst == nil {
		return fmt.Errorf("%w: nil destination array", carrow.ErrInvalid)
	}
	if src.IsReleased() {
		return fmt.Errorf("%w: source array is nil or released", carrow.ErrInvalid)
	}

	*dst = Array{Length: src.Length, Offset: src.Offset}
	if len(src.Children) > 0 {
		dst.Children = make([]*Array, len(src.Children))
		for i, c := range src.Children {
			dst.Children[i] = new(Array)
			if err := CopyPtype(dst.Children[i], c); err != nil {
				return err
			}
		}
	}

	if src.Dictionary != nil {
		dst.Dictionary = new(Array)
		return CopyPtype(dst.Dictionary, src.Dictionary)
	}
	return nil
}
