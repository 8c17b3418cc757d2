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

package transport

import (
	"fmt"

	liberr "github.com/sabouaram/pmix/errors"
)

// Error codes for the transport package.
const (
	// ErrorSocketBind indicates the rendezvous socket could not be bound.
	ErrorSocketBind liberr.CodeError = iota + liberr.MinPkgPmixTransport

	// ErrorPeerCredentials indicates SO_PEERCRED could not be read for an
	// accepted connection.
	ErrorPeerCredentials

	// ErrorHandshakeVersion indicates a peer's handshake advertised a
	// protocol version this build does not speak.
	ErrorHandshakeVersion

	// ErrorHandshakeRejected indicates the host refused a tool connection's
	// namespace allocation request.
	ErrorHandshakeRejected
)

func init() {
	if liberr.ExistInMapMessage(ErrorSocketBind) {
		panic(fmt.Errorf("error code collision with package pmix/transport"))
	}
	liberr.RegisterIdFctMessage(ErrorSocketBind, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorSocketBind:
		return "rendezvous socket could not be bound"
	case ErrorPeerCredentials:
		return "peer credentials could not be read"
	case ErrorHandshakeVersion:
		return "peer handshake protocol version mismatch"
	case ErrorHandshakeRejected:
		return "host rejected tool namespace allocation"
	}

	return liberr.NullMessage
}
