/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

package client

import (
	"fmt"

	liberr "github.com/sabouaram/pmix/errors"
)

// Error codes for the client package.
const (
	// ErrorDialFailed indicates the rendezvous socket could not be reached.
	ErrorDialFailed liberr.CodeError = iota + liberr.MinPkgPmixClient

	// ErrorHandshakeRejected indicates the server declined the handshake.
	ErrorHandshakeRejected

	// ErrorConnectionClosed indicates a call was still in flight when the
	// connection was closed or the peer dropped it.
	ErrorConnectionClosed
)

func init() {
	if liberr.ExistInMapMessage(ErrorDialFailed) {
		panic(fmt.Errorf("error code collision with package pmix/client"))
	}
	liberr.RegisterIdFctMessage(ErrorDialFailed, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorDialFailed:
		return "could not dial rendezvous socket"
	case ErrorHandshakeRejected:
		return "server rejected handshake"
	case ErrorConnectionClosed:
		return "connection closed while a call was in flight"
	}

	return liberr.NullMessage
}
