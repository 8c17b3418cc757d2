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

// Package wire implements the self-describing codec, typed Value union and
// fixed-layout frame header used to exchange requests and replies between a
// client and its local server over a byte stream.
package wire

// Mode selects whether packed items carry their own type tag (FULLY_DESC,
// used at the outer command layer so a peer can unpack without prior schema
// knowledge) or are raw and schema-known to the caller (NON_DESC, used for
// nested sub-buffers whose shape is already fixed by the enclosing field).
type Mode uint8

const (
	FullyDesc Mode = iota
	NonDesc
)

const defaultInitialAlloc = 256

// Buffer is a growable byte sequence with independent pack and unpack
// cursors. base <= unpackCursor <= packCursor <= base+allocated always
// holds; used is packCursor.
type Buffer struct {
	mode         Mode
	data         []byte
	allocated    int
	packCursor   int
	unpackCursor int
}

// New returns an empty buffer ready for packing in the given mode.
func New(mode Mode) *Buffer {
	return &Buffer{mode: mode}
}

// NewFromBytes wraps an already-serialized payload for unpacking. The
// returned buffer's pack cursor is placed at the end of the supplied bytes,
// matching a buffer that was just fully packed and handed off for reading.
func NewFromBytes(mode Mode, b []byte) *Buffer {
	return &Buffer{
		mode:         mode,
		data:         b,
		allocated:    len(b),
		packCursor:   len(b),
		unpackCursor: 0,
	}
}

// Mode returns the buffer's descriptor mode.
func (b *Buffer) Mode() Mode {
	return b.mode
}

// Used returns the number of packed bytes (pack_cursor - base).
func (b *Buffer) Used() int {
	return b.packCursor
}

// Remaining returns the number of unread bytes left for unpack.
func (b *Buffer) Remaining() int {
	return b.packCursor - b.unpackCursor
}

// Bytes returns the packed byte slice (read-only view; callers must not
// retain across a subsequent pack that may reallocate the backing array).
func (b *Buffer) Bytes() []byte {
	return b.data[:b.packCursor]
}

// Reset rewinds the unpack cursor to the beginning without discarding the
// packed content, allowing a buffer to be unpacked more than once.
func (b *Buffer) Reset() {
	b.unpackCursor = 0
}

// grow ensures n additional bytes can be written at packCursor, doubling the
// allocation (or growing to the exact requirement if larger) and copying the
// live prefix into the new backing array.
func (b *Buffer) grow(n int) {
	need := b.packCursor + n
	if need <= b.allocated {
		return
	}

	newAlloc := b.allocated * 2
	if newAlloc == 0 {
		newAlloc = defaultInitialAlloc
	}
	for newAlloc < need {
		newAlloc *= 2
	}

	nd := make([]byte, newAlloc)
	copy(nd, b.data[:b.packCursor])
	b.data = nd
	b.allocated = newAlloc
}

// writeBytes appends raw bytes at the pack cursor, growing as needed.
func (b *Buffer) writeBytes(p []byte) {
	b.grow(len(p))
	copy(b.data[b.packCursor:], p)
	b.packCursor += len(p)
}

// readBytes consumes n bytes from the unpack cursor. ok is false if fewer
// than n bytes remain (UnpackReadPastEnd at the caller).
func (b *Buffer) readBytes(n int) (p []byte, ok bool) {
	if b.unpackCursor+n > b.packCursor {
		return nil, false
	}
	p = b.data[b.unpackCursor : b.unpackCursor+n]
	b.unpackCursor += n
	return p, true
}

// peekTagCursor returns the unpack cursor position, used by callers that
// must NOT advance past an offending type tag on mismatch.
func (b *Buffer) peekTagCursor() int {
	return b.unpackCursor
}

// rewindTo resets the unpack cursor to a previously saved position.
func (b *Buffer) rewindTo(pos int) {
	b.unpackCursor = pos
}
