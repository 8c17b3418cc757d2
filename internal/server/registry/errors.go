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

package registry

import (
	"fmt"

	liberr "github.com/sabouaram/pmix/errors"
)

// Error codes for the registry package. These cover setup-time failures
// that fall outside the wire status.Code taxonomy returned by the
// registration calls themselves.
const (
	// ErrorNodeMapDecode indicates a NODE_MAP entry could not be decompressed.
	ErrorNodeMapDecode liberr.CodeError = iota + liberr.MinPkgPmixRegistry

	// ErrorProcMapDecode indicates a PROC_MAP entry could not be decompressed.
	ErrorProcMapDecode

	// ErrorBlobEncode indicates the job-info blob could not be packed.
	ErrorBlobEncode
)

func init() {
	if liberr.ExistInMapMessage(ErrorNodeMapDecode) {
		panic(fmt.Errorf("error code collision with package pmix/registry"))
	}
	liberr.RegisterIdFctMessage(ErrorNodeMapDecode, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorNodeMapDecode:
		return "node map entry could not be decompressed"
	case ErrorProcMapDecode:
		return "proc map entry could not be decompressed"
	case ErrorBlobEncode:
		return "job-info blob could not be packed"
	}

	return liberr.NullMessage
}
