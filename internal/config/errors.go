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

package config

import (
	"fmt"

	liberr "github.com/sabouaram/pmix/errors"
)

// Error codes for the config package.
const (
	// ErrorConfigFileRead indicates the config file could not be read.
	ErrorConfigFileRead liberr.CodeError = iota + liberr.MinPkgPmixConfig

	// ErrorConfigFileParse indicates the config file's YAML could not be
	// decoded.
	ErrorConfigFileParse

	// ErrorWatchFailed indicates the fsnotify watch on the config file's
	// directory could not be established.
	ErrorWatchFailed
)

func init() {
	if liberr.ExistInMapMessage(ErrorConfigFileRead) {
		panic(fmt.Errorf("error code collision with package pmix/config"))
	}
	liberr.RegisterIdFctMessage(ErrorConfigFileRead, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorConfigFileRead:
		return "could not read config file"
	case ErrorConfigFileParse:
		return "could not parse config file"
	case ErrorWatchFailed:
		return "could not watch config file for changes"
	}

	return liberr.NullMessage
}
