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

package collective

import (
	"fmt"

	liberr "github.com/sabouaram/pmix/errors"
)

// Error codes for the collective package, covering host-callback failures
// that must propagate into every tracked participant's reply.
const (
	// ErrorHostCallbackFailed indicates the host fence_nb/connect/disconnect
	// callback returned a failure that must be broadcast to every local
	// participant on the tracker.
	ErrorHostCallbackFailed liberr.CodeError = iota + liberr.MinPkgPmixCollective

	// ErrorSignatureMismatch indicates a participant tried to join a tracker
	// whose request kind does not match the tracker's own.
	ErrorSignatureMismatch
)

func init() {
	if liberr.ExistInMapMessage(ErrorHostCallbackFailed) {
		panic(fmt.Errorf("error code collision with package pmix/collective"))
	}
	liberr.RegisterIdFctMessage(ErrorHostCallbackFailed, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorHostCallbackFailed:
		return "host collective callback failed"
	case ErrorSignatureMismatch:
		return "collective request kind does not match existing tracker"
	}

	return liberr.NullMessage
}
