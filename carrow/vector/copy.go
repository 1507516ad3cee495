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

package vector

import (
	"fmt"

	"github.com/JohnCGriffin/overflow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/paleolimbot/arrowvctrs/carrow"
	"github.com/paleolimbot/arrowvctrs/carrow/array"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

// Copy copies the logical elements [srcStart, srcStart+length) of src into
// [dstStart, dstStart+length) of dst. Both positions are relative to the
// arrays' own offsets. dst must already have buffers (see AllocBuffers) and
// the same layout as src; variable-width data buffers of dst grow as
// needed.
//
// Argument and bounds errors are reported before anything is written. The
// destination null count is updated for the copied range.
func Copy(dst *Vector, dstStart int64, src *Vector, srcStart, length int64) error {
	d, s := dst.view, src.view
	if err := checkLayout(d, s); err != nil {
		return err
	}
	if !inRange(srcStart, length, s.Len()) || !inRange(dstStart, length, d.Len()) {
		return fmt.Errorf("%w: copy of %d elements from %d (length %d) to %d (length %d)",
			carrow.ErrOutOfRange, length, srcStart, s.Len(), dstStart, d.Len())
	}
	dpos, ok1 := overflow.Add64(d.Offset(), dstStart)
	spos, ok2 := overflow.Add64(s.Offset(), srcStart)
	_, ok3 := overflow.Add64(dpos, length)
	_, ok4 := overflow.Add64(spos, length)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return fmt.Errorf("%w: offset overflows", carrow.ErrOutOfRange)
	}
	if !d.HasBuffers() {
		return fmt.Errorf("%w: destination %s has no buffers", carrow.ErrInvalid, d)
	}
	if !s.HasBuffers() && length > 0 {
		return fmt.Errorf("%w: source %s has no buffers", carrow.ErrInvalid, s)
	}

	c := copier{dst: dst, src: src, dpos: dpos, spos: spos, n: length}
	if err := c.run(); err != nil {
		return xerrors.Errorf("copying %s: %w", s, err)
	}
	return nil
}

func checkLayout(d, s *array.View) error {
	df, sf := d.Format(), s.Format()
	if df.Type != sf.Type || d.BitWidth() != s.BitWidth() ||
		df.ListSize != sf.ListSize || !slices.Equal(df.TypeCodes, sf.TypeCodes) ||
		d.NumChildren() != s.NumChildren() {
		return fmt.Errorf("%w: cannot copy %s into %s", carrow.ErrTypeMismatch, s, d)
	}
	return nil
}

// copier holds one level of a copy; positions are physical.
type copier struct {
	dst, src   *Vector
	dpos, spos int64
	n          int64
}

func (c *copier) run() error {
	d := c.dst.view
	nullsBefore := c.rangeNulls()
	if err := c.copyValidity(); err != nil {
		return err
	}

	var err error
	switch typ := d.Type(); {
	case typ == carrow.NA:
	case typ == carrow.BOOL:
		err = c.copyBits()
	case d.IsFixedWidth():
		err = c.copyFixedWidth()
	case carrow.IsBinaryLike(typ):
		dOff, _ := d.Offsets()
		sOff, _ := c.src.view.Offsets()
		err = copyBinary(c, dOff, sOff)
	case carrow.IsLargeBinaryLike(typ):
		dOff, _ := d.LargeOffsets()
		sOff, _ := c.src.view.LargeOffsets()
		err = copyBinary(c, dOff, sOff)
	case typ == carrow.LIST, typ == carrow.MAP:
		dOff, _ := d.Offsets()
		sOff, _ := c.src.view.Offsets()
		err = copyList(c, dOff, sOff)
	case typ == carrow.LARGE_LIST:
		dOff, _ := d.LargeOffsets()
		sOff, _ := c.src.view.LargeOffsets()
		err = copyList(c, dOff, sOff)
	case typ == carrow.FIXED_SIZE_LIST:
		err = c.copyFixedSizeList()
	case typ == carrow.STRUCT:
		err = c.copyChildren()
	case typ == carrow.SPARSE_UNION:
		if err = c.copyTypeIDs(); err == nil {
			err = c.copyChildren()
		}
	case typ == carrow.DENSE_UNION:
		err = c.copyDenseUnion()
	default:
		err = fmt.Errorf("%w: copy of %s", carrow.ErrNotImplemented, typ)
	}
	if err != nil {
		return err
	}

	c.updateNullCount(nullsBefore)
	return nil
}

func tooShort(what string, have, need int64) error {
	return fmt.Errorf("%w: %s buffer holds %d, need %d", carrow.ErrOutOfRange, what, have, need)
}

func (c *copier) copyValidity() error {
	dv, ok := c.dst.view.Validity()
	if !ok || c.n == 0 {
		return nil
	}
	if need := bitutil.BytesForBits(c.dpos + c.n); int64(len(dv)) < need {
		return tooShort("destination validity", int64(len(dv)), need)
	}

	sv, _ := c.src.view.Validity()
	if len(sv) == 0 {
		bitutil.SetBitsTo(dv, c.dpos, c.n, true)
		return nil
	}
	if need := bitutil.BytesForBits(c.spos + c.n); int64(len(sv)) < need {
		return tooShort("source validity", int64(len(sv)), need)
	}
	bitutil.CopyBitmap(sv, int(c.spos), int(c.n), dv, int(c.dpos))
	return nil
}

// rangeNulls counts the nulls of the destination in [dpos, dpos+n).
func (c *copier) rangeNulls() int64 {
	dv, ok := c.dst.view.Validity()
	if !ok || c.n == 0 || int64(len(dv)) < bitutil.BytesForBits(c.dpos+c.n) {
		return 0
	}
	return c.n - int64(bitutil.CountSetBits(dv, int(c.dpos), int(c.n)))
}

// updateNullCount adjusts the destination null count by the change over
// the copied range, recounting the whole bitmap only when the count is
// unknown.
func (c *copier) updateNullCount(before int64) {
	d := c.dst.view
	arr := d.Array()
	switch dv, ok := d.Validity(); {
	case d.Type() == carrow.NA:
		arr.NullCount = arr.Length
	case !ok || len(dv) == 0:
		arr.NullCount = 0
	case arr.NullCount < 0:
		arr.NullCount = arr.Length - int64(bitutil.CountSetBits(dv, int(arr.Offset), int(arr.Length)))
	default:
		arr.NullCount += c.rangeNulls() - before
	}
}

func (c *copier) data() (dd, sd []byte) {
	dd, _ = c.dst.view.Data()
	sd, _ = c.src.view.Data()
	return dd, sd
}

func (c *copier) copyBits() error {
	dd, sd := c.data()
	if c.n == 0 {
		return nil
	}
	if need := bitutil.BytesForBits(c.dpos + c.n); int64(len(dd)) < need {
		return tooShort("destination data", int64(len(dd)), need)
	}
	if need := bitutil.BytesForBits(c.spos + c.n); int64(len(sd)) < need {
		return tooShort("source data", int64(len(sd)), need)
	}
	bitutil.CopyBitmap(sd, int(c.spos), int(c.n), dd, int(c.dpos))
	return nil
}

func (c *copier) copyFixedWidth() error {
	dd, sd := c.data()
	w := c.dst.view.ByteWidth()
	dEnd, ok1 := overflow.Mul64(c.dpos+c.n, w)
	sEnd, ok2 := overflow.Mul64(c.spos+c.n, w)
	if !ok1 || !ok2 {
		return fmt.Errorf("%w: byte range overflows", carrow.ErrOutOfRange)
	}
	if int64(len(dd)) < dEnd {
		return tooShort("destination data", int64(len(dd)), dEnd)
	}
	if int64(len(sd)) < sEnd {
		return tooShort("source data", int64(len(sd)), sEnd)
	}
	copy(dd[c.dpos*w:dEnd], sd[c.spos*w:sEnd])
	return nil
}

// offsetRange validates the offsets a copy reads and writes and returns
// the source range [first, last) together with the destination offset it
// is mapped onto.
func offsetRange[T int32 | int64](c *copier, dOff, sOff []T) (first, last, base T, err error) {
	if int64(len(sOff)) < c.spos+c.n+1 {
		return 0, 0, 0, tooShort("source offsets", int64(len(sOff)), c.spos+c.n+1)
	}
	if int64(len(dOff)) < c.dpos+c.n+1 {
		return 0, 0, 0, tooShort("destination offsets", int64(len(dOff)), c.dpos+c.n+1)
	}
	first, last, base = sOff[c.spos], sOff[c.spos+c.n], dOff[c.dpos]
	if last < first {
		return 0, 0, 0, fmt.Errorf("%w: decreasing offsets %d > %d", carrow.ErrInvalid, first, last)
	}
	return first, last, base, nil
}

// rebase writes the n+1 destination offsets so that they continue from the
// offset already stored at dpos.
func rebase[T int32 | int64](c *copier, dOff, sOff []T, first, base T) {
	for i := int64(0); i <= c.n; i++ {
		dOff[c.dpos+i] = sOff[c.spos+i] - first + base
	}
}

func copyBinary[T int32 | int64](c *copier, dOff, sOff []T) error {
	if c.n == 0 {
		return nil
	}
	first, last, base, err := offsetRange(c, dOff, sOff)
	if err != nil {
		return err
	}
	sd, _ := c.src.view.Data()
	if int64(len(sd)) < int64(last) {
		return tooShort("source data", int64(len(sd)), int64(last))
	}

	slot, _ := c.dst.view.Slot(array.DataBuffer)
	buf := c.dst.view.Array().Buffers[slot]
	if buf == nil {
		return fmt.Errorf("%w: destination data buffer is missing", carrow.ErrInvalid)
	}
	if err := grow(buf, int64(base)+int64(last-first)); err != nil {
		return err
	}

	rebase(c, dOff, sOff, first, base)
	copy(buf.Bytes()[int64(base):], sd[int64(first):int64(last)])
	return nil
}

func copyList[T int32 | int64](c *copier, dOff, sOff []T) error {
	if c.n == 0 {
		return nil
	}
	first, last, base, err := offsetRange(c, dOff, sOff)
	if err != nil {
		return err
	}
	rebase(c, dOff, sOff, first, base)
	return Copy(c.dst.Child(0), int64(base), c.src.Child(0), int64(first), int64(last-first))
}

func (c *copier) copyFixedSizeList() error {
	size := int64(c.dst.view.Format().ListSize)
	dstStart, ok1 := overflow.Mul64(c.dpos, size)
	srcStart, ok2 := overflow.Mul64(c.spos, size)
	n, ok3 := overflow.Mul64(c.n, size)
	if !ok1 || !ok2 || !ok3 {
		return fmt.Errorf("%w: fixed-size list child range overflows", carrow.ErrOutOfRange)
	}
	return Copy(c.dst.Child(0), dstStart, c.src.Child(0), srcStart, n)
}

// inRange reports whether [start, start+length) lies within [0, size).
func inRange(start, length, size int64) bool {
	end, ok := overflow.Add64(start, length)
	return ok && start >= 0 && length >= 0 && end <= size
}

func (c *copier) copyChildren() error {
	for i := 0; i < c.dst.view.NumChildren(); i++ {
		if err := Copy(c.dst.Child(i), c.dpos, c.src.Child(i), c.spos, c.n); err != nil {
			return err
		}
	}
	return nil
}

func (c *copier) typeIDs() (dt, st []int8, err error) {
	dt, _ = c.dst.view.UnionTypeIDs()
	st, _ = c.src.view.UnionTypeIDs()
	if int64(len(dt)) < c.dpos+c.n {
		return nil, nil, tooShort("destination type ids", int64(len(dt)), c.dpos+c.n)
	}
	if int64(len(st)) < c.spos+c.n {
		return nil, nil, tooShort("source type ids", int64(len(st)), c.spos+c.n)
	}
	return dt, st, nil
}

func (c *copier) copyTypeIDs() error {
	dt, st, err := c.typeIDs()
	if err != nil {
		return err
	}
	copy(dt[c.dpos:c.dpos+c.n], st[c.spos:c.spos+c.n])
	return nil
}

// copyDenseUnion appends the selected elements of each source child after
// the elements the destination children already hold before dpos, copying
// runs of adjacent child elements at once.
func (c *copier) copyDenseUnion() error {
	if c.n == 0 {
		return nil
	}
	d, s := c.dst.view, c.src.view
	dt, st, err := c.typeIDs()
	if err != nil {
		return err
	}
	dOff, _ := d.Offsets()
	sOff, _ := s.Offsets()
	if int64(len(dOff)) < c.dpos+c.n {
		return tooShort("destination offsets", int64(len(dOff)), c.dpos+c.n)
	}
	if int64(len(sOff)) < c.spos+c.n {
		return tooShort("source offsets", int64(len(sOff)), c.spos+c.n)
	}

	childOf := func(v *array.View, code int8) (int, error) {
		idx, ok := v.ChildIndex(code)
		if !ok {
			return 0, fmt.Errorf("%w: unknown union type code %d", carrow.ErrInvalid, code)
		}
		return idx, nil
	}

	next := make([]int64, d.NumChildren())
	for i := d.Offset(); i < c.dpos; i++ {
		idx, err := childOf(d, dt[i])
		if err != nil {
			return err
		}
		next[idx] = max(next[idx], int64(dOff[i])+1)
	}
	for i := c.spos; i < c.spos+c.n; i++ {
		if _, err := childOf(s, st[i]); err != nil {
			return err
		}
	}

	for i := int64(0); i < c.n; {
		code := st[c.spos+i]
		idx, _ := childOf(s, code)
		start := int64(sOff[c.spos+i])
		run := int64(1)
		for i+run < c.n && st[c.spos+i+run] == code && int64(sOff[c.spos+i+run]) == start+run {
			run++
		}
		for j := int64(0); j < run; j++ {
			dt[c.dpos+i+j] = code
			dOff[c.dpos+i+j] = int32(next[idx] + j)
		}
		if err := Copy(c.dst.Child(idx), next[idx], c.src.Child(idx), start, run); err != nil {
			return err
		}
		next[idx] += run
		i += run
	}
	return nil
}
