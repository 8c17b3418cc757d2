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

// Package status carries the over-the-wire status taxonomy exchanged between
// client and server. Values are small, stable, negative integers so that two
// endpoints built from different revisions of this module still agree on
// their meaning; it is deliberately NOT the positive HTTP-like CodeError
// space used by the errors package for internal diagnostics.
package status

// Code is a stable wire status value. Zero means success; every failure is a
// distinct negative integer.
type Code int32

const (
	Success Code = 0

	Error                    Code = -1
	ErrInit                  Code = -2
	ErrBadParam              Code = -3
	ErrOutOfResource         Code = -4
	ErrResourceBusy          Code = -5
	ErrWouldBlock            Code = -6
	ErrUnreach               Code = -7
	ErrNotFound              Code = -8
	ErrNotSupported          Code = -9
	ErrCommFailure           Code = -10
	ErrPackFailure           Code = -11
	ErrUnpackFailure         Code = -12
	ErrPackMismatch          Code = -13
	ErrUnpackReadPastEnd     Code = -14
	ErrUnpackInadequateSpace Code = -15
	ErrTypeMismatch          Code = -16
	ErrInvalidArg            Code = -17
	ErrTimeout               Code = -18
	ErrReadyForHandshake     Code = -19
)

var names = map[Code]string{
	Success:                  "success",
	Error:                    "error",
	ErrInit:                  "init failure",
	ErrBadParam:              "bad parameter",
	ErrOutOfResource:         "out of resource",
	ErrResourceBusy:          "resource busy",
	ErrWouldBlock:            "would block",
	ErrUnreach:               "unreachable",
	ErrNotFound:              "not found",
	ErrNotSupported:          "not supported",
	ErrCommFailure:           "communication failure",
	ErrPackFailure:           "pack failure",
	ErrUnpackFailure:         "unpack failure",
	ErrPackMismatch:          "pack type mismatch",
	ErrUnpackReadPastEnd:     "unpack read past end",
	ErrUnpackInadequateSpace: "unpack inadequate space",
	ErrTypeMismatch:          "type mismatch",
	ErrInvalidArg:            "invalid argument",
	ErrTimeout:               "timeout",
	ErrReadyForHandshake:     "ready for handshake",
}

// String returns the human-readable name of the code, or "unknown status" if
// the code is not part of the stable taxonomy.
func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "unknown status"
}

// OK reports whether the code denotes success.
func (c Code) OK() bool {
	return c == Success
}

// Error implements the error interface so a Code can be returned directly
// wherever Go idiom expects an error; Success.Error() still returns a
// descriptive string since a nil-ness check should use OK, not a string
// comparison.
func (c Code) Error() string {
	return c.String()
}

// AsError returns nil for Success and the Code itself (as an error) otherwise,
// matching the common "return err" idiom at call sites that already carry a
// Code rather than a constructed error value.
func (c Code) AsError() error {
	if c.OK() {
		return nil
	}
	return c
}
