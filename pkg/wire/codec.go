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

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/sabouaram/pmix/pkg/status"
)

// --- raw integer primitives (always big-endian, used for tags/counts and
// the untagged body of every scalar) ---

func (b *Buffer) packInt32(v int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	b.writeBytes(tmp[:])
}

func (b *Buffer) unpackInt32() (int32, bool) {
	p, ok := b.readBytes(4)
	if !ok {
		return 0, false
	}
	return int32(binary.BigEndian.Uint32(p)), true
}

func (b *Buffer) packUint64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.writeBytes(tmp[:])
}

func (b *Buffer) unpackUint64() (uint64, bool) {
	p, ok := b.readBytes(8)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint64(p), true
}

func (b *Buffer) packUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.writeBytes(tmp[:])
}

func (b *Buffer) unpackUint32() (uint32, bool) {
	p, ok := b.readBytes(4)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint32(p), true
}

func (b *Buffer) packUint16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.writeBytes(tmp[:])
}

func (b *Buffer) unpackUint16() (uint16, bool) {
	p, ok := b.readBytes(2)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint16(p), true
}

// packString writes a NUL-terminated, length-prefixed string body. A nil
// source packs as length 0 with no payload (the NULL case); a non-nil,
// possibly empty string packs length len(s)+1 and the trailing NUL.
func (b *Buffer) packString(s *string) {
	if s == nil {
		b.packInt32(0)
		return
	}
	body := append([]byte(*s), 0)
	b.packInt32(int32(len(body)))
	b.writeBytes(body)
}

func (b *Buffer) unpackString() (*string, status.Code) {
	n, ok := b.unpackInt32()
	if !ok {
		return nil, status.ErrUnpackReadPastEnd
	}
	if n == 0 {
		return nil, status.Success
	}
	if n < 0 {
		return nil, status.ErrUnpackFailure
	}
	p, ok := b.readBytes(int(n))
	if !ok {
		return nil, status.ErrUnpackReadPastEnd
	}
	s := string(p[:len(p)-1])
	return &s, status.Success
}

// packRawString writes a plain length-prefixed string with no NUL, used for
// the printable decimal form of float/double bodies.
func (b *Buffer) packRawString(s string) {
	p := []byte(s)
	b.packInt32(int32(len(p)))
	b.writeBytes(p)
}

func (b *Buffer) unpackRawString() (string, status.Code) {
	n, ok := b.unpackInt32()
	if !ok {
		return "", status.ErrUnpackReadPastEnd
	}
	if n < 0 {
		return "", status.ErrUnpackFailure
	}
	p, ok := b.readBytes(int(n))
	if !ok {
		return "", status.ErrUnpackReadPastEnd
	}
	return string(p), status.Success
}

// packByteObject writes an int32 size followed by size bytes. A nil source
// packs as size 0 with no payload.
func (b *Buffer) packByteObject(v []byte, hasByte bool) {
	if !hasByte {
		b.packInt32(0)
		return
	}
	b.packInt32(int32(len(v)))
	if len(v) > 0 {
		b.writeBytes(v)
	}
}

func (b *Buffer) unpackByteObject() ([]byte, bool, status.Code) {
	n, ok := b.unpackInt32()
	if !ok {
		return nil, false, status.ErrUnpackReadPastEnd
	}
	if n == 0 {
		return nil, false, status.Success
	}
	if n < 0 {
		return nil, false, status.ErrUnpackFailure
	}
	p, ok := b.readBytes(int(n))
	if !ok {
		return nil, false, status.ErrUnpackReadPastEnd
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out, true, status.Success
}

// encodeScalarBody writes the untagged body of a scalar Value.
func encodeScalarBody(b *Buffer, v Value) status.Code {
	switch v.Type {
	case TypeBool:
		if v.boolV {
			b.writeBytes([]byte{1})
		} else {
			b.writeBytes([]byte{0})
		}
	case TypeByte:
		b.writeBytes([]byte{v.byteV})
	case TypeInt8:
		b.writeBytes([]byte{byte(v.i8)})
	case TypeInt16:
		b.packUint16(uint16(v.i16))
	case TypeInt32:
		b.packInt32(v.i32)
	case TypeInt64:
		b.packUint64(uint64(v.i64))
	case TypeUint8:
		b.writeBytes([]byte{v.u8})
	case TypeUint16:
		b.packUint16(v.u16)
	case TypeUint32:
		b.packUint32(v.u32)
	case TypeUint64:
		b.packUint64(v.u64)
	case TypeSize:
		b.packUint64(v.size)
	case TypePid:
		b.packUint32(v.pid)
	case TypeFloat:
		b.packRawString(strconv.FormatFloat(float64(v.f32), 'g', -1, 32))
	case TypeDouble:
		b.packRawString(strconv.FormatFloat(v.f64, 'g', -1, 64))
	case TypeTimeval:
		b.packUint64(uint64(v.tv.Sec))
		b.packUint64(uint64(v.tv.Usec))
	case TypeTime:
		b.packUint64(uint64(v.tm.Unix()))
	case TypeString:
		b.packString(v.str)
	case TypeByteObject:
		b.packByteObject(v.bytes, v.hasByte)
	default:
		if v.Type.IsArray() {
			return encodeArrayBody(b, v)
		}
		return status.ErrPackFailure
	}
	return status.Success
}

// decodeScalarBody reads the untagged body of a scalar of the given type.
func decodeScalarBody(b *Buffer, typ Type) (Value, status.Code) {
	switch typ {
	case TypeBool:
		p, ok := b.readBytes(1)
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewBool(p[0] != 0), status.Success
	case TypeByte:
		p, ok := b.readBytes(1)
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewByte(p[0]), status.Success
	case TypeInt8:
		p, ok := b.readBytes(1)
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewInt8(int8(p[0])), status.Success
	case TypeInt16:
		u, ok := b.unpackUint16()
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewInt16(int16(u)), status.Success
	case TypeInt32:
		i, ok := b.unpackInt32()
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewInt32(i), status.Success
	case TypeInt64:
		u, ok := b.unpackUint64()
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewInt64(int64(u)), status.Success
	case TypeUint8:
		p, ok := b.readBytes(1)
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewUint8(p[0]), status.Success
	case TypeUint16:
		u, ok := b.unpackUint16()
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewUint16(u), status.Success
	case TypeUint32:
		u, ok := b.unpackUint32()
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewUint32(u), status.Success
	case TypeUint64:
		u, ok := b.unpackUint64()
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewUint64(u), status.Success
	case TypeSize:
		u, ok := b.unpackUint64()
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewSize(u), status.Success
	case TypePid:
		u, ok := b.unpackUint32()
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewPid(u), status.Success
	case TypeFloat:
		s, sc := b.unpackRawString()
		if sc != status.Success {
			return Value{}, sc
		}
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Value{}, status.ErrUnpackFailure
		}
		return NewFloat(float32(f)), status.Success
	case TypeDouble:
		s, sc := b.unpackRawString()
		if sc != status.Success {
			return Value{}, sc
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, status.ErrUnpackFailure
		}
		return NewDouble(f), status.Success
	case TypeTimeval:
		sec, ok := b.unpackUint64()
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		usec, ok := b.unpackUint64()
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewTimeval(Timeval{Sec: int64(sec), Usec: int64(usec)}), status.Success
	case TypeTime:
		u, ok := b.unpackUint64()
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		return NewTime(time.Unix(int64(u), 0).UTC()), status.Success
	case TypeString:
		s, sc := b.unpackString()
		if sc != status.Success {
			return Value{}, sc
		}
		return NewString(s), status.Success
	case TypeByteObject:
		p, has, sc := b.unpackByteObject()
		if sc != status.Success {
			return Value{}, sc
		}
		return Value{Type: TypeByteObject, bytes: p, hasByte: has}, status.Success
	default:
		if typ.IsArray() {
			return decodeArrayBody(b, typ)
		}
		return Value{}, status.ErrUnpackFailure
	}
}

// PackValue writes a fully self-describing Value: in FULLY_DESC mode the
// type tag precedes the body; in NON_DESC mode only the body is written.
func PackValue(buf *Buffer, v Value) status.Code {
	if buf.mode == FullyDesc {
		buf.packInt32(int32(v.Type))
	}
	return encodeScalarBody(buf, v)
}

// UnpackValue reads a Value whose type the caller already expects (e.g. a
// dispatcher reading a known opcode field). In FULLY_DESC mode the tag on
// the wire must equal expect; a mismatch returns PackMismatch without
// advancing the cursor past the offending tag.
func UnpackValue(buf *Buffer, expect Type) (Value, status.Code) {
	if buf.mode == FullyDesc {
		pos := buf.peekTagCursor()
		tag, ok := buf.unpackInt32()
		if !ok {
			return Value{}, status.ErrUnpackReadPastEnd
		}
		if Type(tag) != expect {
			buf.rewindTo(pos)
			return Value{}, status.ErrPackMismatch
		}
	}
	return decodeScalarBody(buf, expect)
}

// UnpackValueAny reads a Value without any prior expectation of its type,
// relying entirely on the on-wire tag (FULLY_DESC mode only).
func UnpackValueAny(buf *Buffer) (Value, status.Code) {
	if buf.mode != FullyDesc {
		return Value{}, status.ErrBadParam
	}
	tag, ok := buf.unpackInt32()
	if !ok {
		return Value{}, status.ErrUnpackReadPastEnd
	}
	return decodeScalarBody(buf, Type(tag))
}

// PackKV writes a key/value pair as (string key, Value value).
func PackKV(buf *Buffer, key string, v Value) status.Code {
	buf.packString(&key)
	return PackValue(buf, v)
}

// UnpackKV reads a key/value pair written by PackKV.
func UnpackKV(buf *Buffer) (string, Value, status.Code) {
	ks, sc := buf.unpackString()
	if sc != status.Success {
		return "", Value{}, sc
	}
	if ks == nil {
		return "", Value{}, status.ErrUnpackFailure
	}
	v, sc := UnpackValueAny(buf)
	return *ks, v, sc
}

// PackSubBuffer nests a child buffer's packed bytes into the parent as a
// length-prefixed blob, matching the recursive child-buffer encoding used
// to carry PROC_BLOB entries inside a job-info blob.
func PackSubBuffer(parent *Buffer, child *Buffer) status.Code {
	parent.packInt32(int32(child.Used()))
	parent.writeBytes(child.Bytes())
	return status.Success
}

// UnpackSubBuffer reads a nested child buffer packed by PackSubBuffer.
func UnpackSubBuffer(parent *Buffer, mode Mode) (*Buffer, status.Code) {
	n, ok := parent.unpackInt32()
	if !ok {
		return nil, status.ErrUnpackReadPastEnd
	}
	if n < 0 {
		return nil, status.ErrUnpackFailure
	}
	p, ok := parent.readBytes(int(n))
	if !ok {
		return nil, status.ErrUnpackReadPastEnd
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	return NewFromBytes(mode, cp), status.Success
}
