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
	"fmt"
)

// MsgType is the header's 8-bit message type discriminant.
type MsgType uint8

const (
	MsgIdent MsgType = iota
	MsgUser
)

// HeaderSize is the fixed on-wire byte width of a Header: 8 (peer id) + 1
// (type) + 4 (tag) + 8 (nbytes) = 21 bytes. All multi-byte fields are
// network byte order.
const HeaderSize = 8 + 1 + 4 + 8

// Header is the fixed-layout preamble sent before every frame's payload.
type Header struct {
	PeerID uint64
	Type   MsgType
	Tag    uint32
	NBytes uint64
}

// Encode writes the header into a freshly allocated HeaderSize-byte slice.
func (h Header) Encode() []byte {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint64(b[0:8], h.PeerID)
	b[8] = byte(h.Type)
	binary.BigEndian.PutUint32(b[9:13], h.Tag)
	binary.BigEndian.PutUint64(b[13:21], h.NBytes)
	return b
}

// DecodeHeader reads a Header from an exactly HeaderSize-byte slice.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderSize {
		return Header{}, fmt.Errorf("wire: short header: got %d want %d bytes", len(b), HeaderSize)
	}
	return Header{
		PeerID: binary.BigEndian.Uint64(b[0:8]),
		Type:   MsgType(b[8]),
		Tag:    binary.BigEndian.Uint32(b[9:13]),
		NBytes: binary.BigEndian.Uint64(b[13:21]),
	}, nil
}
