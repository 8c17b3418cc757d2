/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package wire

import "time"

// Type is the wire type tag. Values in [1,63] are scalar; ArrayFlag set on
// top marks the one-level-array variant of the base scalar, so an int32 and
// an int32-array are distinct, mismatching types at unpack time.
type Type int32

const ArrayFlag Type = 1 << 16

const (
	TypeUndef Type = iota
	TypeBool
	TypeByte
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeSize
	TypePid
	TypeFloat
	TypeDouble
	TypeTimeval
	TypeTime
	TypeString
	TypeByteObject
)

func (t Type) IsArray() bool {
	return t&ArrayFlag != 0
}

func (t Type) Elem() Type {
	return t &^ ArrayFlag
}

func (t Type) Array() Type {
	return t | ArrayFlag
}

// Timeval mirrors the C timeval pair packed as two int64 fields.
type Timeval struct {
	Sec  int64
	Usec int64
}

// Value is a tagged union over every variant named in the data model.
// Exactly one field group is meaningful, selected by Type. Only String keeps
// a NULL source (nil pointer) apart from an empty one across the codec; a
// ByteObject of zero length packs as size 0 exactly like a nil one and
// unpacks as NULL.
type Value struct {
	Type Type

	boolV   bool
	byteV   byte
	i8      int8
	i16     int16
	i32     int32
	i64     int64
	u8      uint8
	u16     uint16
	u32     uint32
	u64     uint64
	size    uint64
	pid     uint32
	f32     float32
	f64     float64
	tv      Timeval
	tm      time.Time
	str     *string
	bytes   []byte
	hasByte bool // distinguishes nil vs non-nil empty []byte for ByteObject

	arr any
}

func NewBool(v bool) Value  { return Value{Type: TypeBool, boolV: v} }
func NewByte(v byte) Value  { return Value{Type: TypeByte, byteV: v} }
func NewInt8(v int8) Value  { return Value{Type: TypeInt8, i8: v} }
func NewInt16(v int16) Value {
	return Value{Type: TypeInt16, i16: v}
}
func NewInt32(v int32) Value   { return Value{Type: TypeInt32, i32: v} }
func NewInt64(v int64) Value   { return Value{Type: TypeInt64, i64: v} }
func NewUint8(v uint8) Value   { return Value{Type: TypeUint8, u8: v} }
func NewUint16(v uint16) Value { return Value{Type: TypeUint16, u16: v} }
func NewUint32(v uint32) Value { return Value{Type: TypeUint32, u32: v} }
func NewUint64(v uint64) Value { return Value{Type: TypeUint64, u64: v} }
func NewSize(v uint64) Value   { return Value{Type: TypeSize, size: v} }
func NewPid(v uint32) Value    { return Value{Type: TypePid, pid: v} }
func NewFloat(v float32) Value { return Value{Type: TypeFloat, f32: v} }
func NewDouble(v float64) Value {
	return Value{Type: TypeDouble, f64: v}
}
func NewTimeval(v Timeval) Value  { return Value{Type: TypeTimeval, tv: v} }
func NewTime(v time.Time) Value   { return Value{Type: TypeTime, tm: v} }

// NewString builds a string Value. Pass nil to model the NULL case.
func NewString(v *string) Value { return Value{Type: TypeString, str: v} }

func NewStringV(v string) Value { return Value{Type: TypeString, str: &v} }

// NewByteObject builds a byte_object Value. Pass nil to model the NULL case
// (size 0, no payload); pass a non-nil (possibly empty) slice otherwise.
func NewByteObject(v []byte) Value {
	return Value{Type: TypeByteObject, bytes: v, hasByte: v != nil}
}

func (v Value) Bool() bool         { return v.boolV }
func (v Value) Byte() byte         { return v.byteV }
func (v Value) Int8() int8         { return v.i8 }
func (v Value) Int16() int16       { return v.i16 }
func (v Value) Int32() int32       { return v.i32 }
func (v Value) Int64() int64       { return v.i64 }
func (v Value) Uint8() uint8       { return v.u8 }
func (v Value) Uint16() uint16     { return v.u16 }
func (v Value) Uint32() uint32     { return v.u32 }
func (v Value) Uint64() uint64     { return v.u64 }
func (v Value) Size() uint64       { return v.size }
func (v Value) Pid() uint32        { return v.pid }
func (v Value) Float() float32     { return v.f32 }
func (v Value) Double() float64    { return v.f64 }
func (v Value) TimevalV() Timeval  { return v.tv }
func (v Value) TimeV() time.Time   { return v.tm }
func (v Value) Str() *string       { return v.str }
func (v Value) ByteObject() []byte { return v.bytes }

// StringOrEmpty returns the dereferenced string, or "" for a NULL value.
func (v Value) StringOrEmpty() string {
	if v.str == nil {
		return ""
	}
	return *v.str
}

// NewArray wraps a homogeneous Go slice (e.g. []int32, []string) as the
// array variant of elemType. The caller is responsible for the slice's
// element type matching elemType; encodeArrayBody type-switches on it.
func NewArray(elemType Type, slice any) Value {
	return Value{Type: elemType.Array(), arr: slice}
}

func (v Value) Arr() any { return v.arr }

// Equal reports value equality for the variants exercised by the codec's
// round-trip tests. Arrays and byte objects compare by content.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeBool:
		return v.boolV == o.boolV
	case TypeByte:
		return v.byteV == o.byteV
	case TypeInt8:
		return v.i8 == o.i8
	case TypeInt16:
		return v.i16 == o.i16
	case TypeInt32:
		return v.i32 == o.i32
	case TypeInt64:
		return v.i64 == o.i64
	case TypeUint8:
		return v.u8 == o.u8
	case TypeUint16:
		return v.u16 == o.u16
	case TypeUint32:
		return v.u32 == o.u32
	case TypeUint64:
		return v.u64 == o.u64
	case TypeSize:
		return v.size == o.size
	case TypePid:
		return v.pid == o.pid
	case TypeFloat:
		return v.f32 == o.f32
	case TypeDouble:
		return v.f64 == o.f64
	case TypeTimeval:
		return v.tv == o.tv
	case TypeTime:
		return v.tm.Equal(o.tm)
	case TypeString:
		if (v.str == nil) != (o.str == nil) {
			return false
		}
		return v.str == nil || *v.str == *o.str
	case TypeByteObject:
		if v.hasByte != o.hasByte {
			return false
		}
		if len(v.bytes) != len(o.bytes) {
			return false
		}
		for i := range v.bytes {
			if v.bytes[i] != o.bytes[i] {
				return false
			}
		}
		return true
	default:
		return equalArray(v.arr, o.arr)
	}
}

func equalArray(a, b any) bool {
	switch av := a.(type) {
	case []bool:
		bv, ok := b.([]bool)
		return ok && sliceEqual(av, bv)
	case []byte:
		bv, ok := b.([]byte)
		return ok && sliceEqual(av, bv)
	case []int8:
		bv, ok := b.([]int8)
		return ok && sliceEqual(av, bv)
	case []int16:
		bv, ok := b.([]int16)
		return ok && sliceEqual(av, bv)
	case []int32:
		bv, ok := b.([]int32)
		return ok && sliceEqual(av, bv)
	case []int64:
		bv, ok := b.([]int64)
		return ok && sliceEqual(av, bv)
	case []uint16:
		bv, ok := b.([]uint16)
		return ok && sliceEqual(av, bv)
	case []uint32:
		bv, ok := b.([]uint32)
		return ok && sliceEqual(av, bv)
	case []uint64:
		bv, ok := b.([]uint64)
		return ok && sliceEqual(av, bv)
	case []float32:
		bv, ok := b.([]float32)
		return ok && sliceEqual(av, bv)
	case []float64:
		bv, ok := b.([]float64)
		return ok && sliceEqual(av, bv)
	case []string:
		bv, ok := b.([]string)
		return ok && sliceEqual(av, bv)
	default:
		return false
	}
}

func sliceEqual[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
