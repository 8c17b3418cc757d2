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

import "github.com/sabouaram/pmix/pkg/status"

// encodeArrayBody writes (int32 size, then size contiguous elements) for a
// one-level array of a primitive type. Elements themselves are untagged:
// the outer array type tag already fixes the element type for the whole
// run.
func encodeArrayBody(b *Buffer, v Value) status.Code {
	elem := v.Type.Elem()
	switch a := v.arr.(type) {
	case []bool:
		b.packInt32(int32(len(a)))
		for _, e := range a {
			if sc := encodeScalarBody(b, NewBool(e)); sc != status.Success {
				return sc
			}
		}
	case []byte:
		b.packInt32(int32(len(a)))
		b.writeBytes(a)
	case []int8:
		b.packInt32(int32(len(a)))
		for _, e := range a {
			if sc := encodeScalarBody(b, NewInt8(e)); sc != status.Success {
				return sc
			}
		}
	case []int16:
		b.packInt32(int32(len(a)))
		for _, e := range a {
			if sc := encodeScalarBody(b, NewInt16(e)); sc != status.Success {
				return sc
			}
		}
	case []int32:
		b.packInt32(int32(len(a)))
		for _, e := range a {
			if sc := encodeScalarBody(b, NewInt32(e)); sc != status.Success {
				return sc
			}
		}
	case []int64:
		b.packInt32(int32(len(a)))
		for _, e := range a {
			if sc := encodeScalarBody(b, NewInt64(e)); sc != status.Success {
				return sc
			}
		}
	case []uint16:
		b.packInt32(int32(len(a)))
		for _, e := range a {
			if sc := encodeScalarBody(b, NewUint16(e)); sc != status.Success {
				return sc
			}
		}
	case []uint32:
		b.packInt32(int32(len(a)))
		for _, e := range a {
			if sc := encodeScalarBody(b, NewUint32(e)); sc != status.Success {
				return sc
			}
		}
	case []uint64:
		b.packInt32(int32(len(a)))
		for _, e := range a {
			if sc := encodeScalarBody(b, NewUint64(e)); sc != status.Success {
				return sc
			}
		}
	case []float32:
		b.packInt32(int32(len(a)))
		for _, e := range a {
			if sc := encodeScalarBody(b, NewFloat(e)); sc != status.Success {
				return sc
			}
		}
	case []float64:
		b.packInt32(int32(len(a)))
		for _, e := range a {
			if sc := encodeScalarBody(b, NewDouble(e)); sc != status.Success {
				return sc
			}
		}
	case []string:
		b.packInt32(int32(len(a)))
		for _, e := range a {
			s := e
			b.packString(&s)
		}
	default:
		_ = elem
		return status.ErrPackFailure
	}
	return status.Success
}

func decodeArrayBody(b *Buffer, typ Type) (Value, status.Code) {
	n, ok := b.unpackInt32()
	if !ok {
		return Value{}, status.ErrUnpackReadPastEnd
	}
	if n < 0 {
		return Value{}, status.ErrUnpackFailure
	}
	elem := typ.Elem()
	count := int(n)

	switch elem {
	case TypeBool:
		out := make([]bool, count)
		for i := 0; i < count; i++ {
			v, sc := decodeScalarBody(b, TypeBool)
			if sc != status.Success {
				return Value{}, sc
			}
			out[i] = v.Bool()
		}
		return NewArray(elem, out), status.Success
	case TypeByte:
		p, ok := b.readBytes(count)
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		out := make([]byte, count)
		copy(out, p)
		return NewArray(elem, out), status.Success
	case TypeInt8:
		out := make([]int8, count)
		for i := 0; i < count; i++ {
			v, sc := decodeScalarBody(b, TypeInt8)
			if sc != status.Success {
				return Value{}, sc
			}
			out[i] = v.Int8()
		}
		return NewArray(elem, out), status.Success
	case TypeInt16:
		out := make([]int16, count)
		for i := 0; i < count; i++ {
			v, sc := decodeScalarBody(b, TypeInt16)
			if sc != status.Success {
				return Value{}, sc
			}
			out[i] = v.Int16()
		}
		return NewArray(elem, out), status.Success
	case TypeInt32:
		out := make([]int32, count)
		for i := 0; i < count; i++ {
			v, sc := decodeScalarBody(b, TypeInt32)
			if sc != status.Success {
				return Value{}, sc
			}
			out[i] = v.Int32()
		}
		return NewArray(elem, out), status.Success
	case TypeInt64:
		out := make([]int64, count)
		for i := 0; i < count; i++ {
			v, sc := decodeScalarBody(b, TypeInt64)
			if sc != status.Success {
				return Value{}, sc
			}
			out[i] = v.Int64()
		}
		return NewArray(elem, out), status.Success
	case TypeUint16:
		out := make([]uint16, count)
		for i := 0; i < count; i++ {
			v, sc := decodeScalarBody(b, TypeUint16)
			if sc != status.Success {
				return Value{}, sc
			}
			out[i] = v.Uint16()
		}
		return NewArray(elem, out), status.Success
	case TypeUint32:
		out := make([]uint32, count)
		for i := 0; i < count; i++ {
			v, sc := decodeScalarBody(b, TypeUint32)
			if sc != status.Success {
				return Value{}, sc
			}
			out[i] = v.Uint32()
		}
		return NewArray(elem, out), status.Success
	case TypeUint64:
		out := make([]uint64, count)
		for i := 0; i < count; i++ {
			v, sc := decodeScalarBody(b, TypeUint64)
			if sc != status.Success {
				return Value{}, sc
			}
			out[i] = v.Uint64()
		}
		return NewArray(elem, out), status.Success
	case TypeFloat:
		out := make([]float32, count)
		for i := 0; i < count; i++ {
			v, sc := decodeScalarBody(b, TypeFloat)
			if sc != status.Success {
				return Value{}, sc
			}
			out[i] = v.Float()
		}
		return NewArray(elem, out), status.Success
	case TypeDouble:
		out := make([]float64, count)
		for i := 0; i < count; i++ {
			v, sc := decodeScalarBody(b, TypeDouble)
			if sc != status.Success {
				return Value{}, sc
			}
			out[i] = v.Double()
		}
		return NewArray(elem, out), status.Success
	case TypeString:
		out := make([]string, count)
		for i := 0; i < count; i++ {
			s, sc := b.unpackString()
			if sc != status.Success {
				return Value{}, sc
			}
			if s != nil {
				out[i] = *s
			}
		}
		return NewArray(elem, out), status.Success
	default:
		return Value{}, status.ErrUnpackFailure
	}
}
