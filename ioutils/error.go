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

package ioutils

import "github.com/sabouaram/pmix/errors"

// Error codes PathCheckCreate reports through errors.CodeError, so a
// daemon failing to stand up its socket directory or log file logs a
// registered message instead of a bare os.PathError.
const (
	ErrorPathWrongType errors.CodeError = iota + errors.MinPkgIOUtils
	ErrorPathMkdir
	ErrorPathCreate
	ErrorPathChmod
)

func init() {
	errors.RegisterIdFctMessage(ErrorPathWrongType, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UnknownError:
		return ""
	case ErrorPathWrongType:
		return "path exists but is not the expected file/directory type"
	case ErrorPathMkdir:
		return "error creating directory"
	case ErrorPathCreate:
		return "error creating file"
	case ErrorPathChmod:
		return "error updating permissions"
	}

	return ""
}
