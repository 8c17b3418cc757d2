/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

// Package entry is the chainable logrus.Entry wrapper logger/model.go builds
// per call: New(level) then SetLogger/FieldSet/ErrorAdd/SetEntryContext chain
// onto one value before Log() or Check() does the actual logrus call. Entries
// are not thread-safe and are meant to be built and logged within one call,
// not shared across goroutines.
//
// FatalLevel triggers os.Exit(1) after logging; NilLevel, a nil logger, or
// nil fields are all no-ops. SetGinContext registers ErrorAdd's errors into
// a *gin.Context's error slice when one is set, for callers embedding entry
// in an HTTP handler; nothing in this tree currently sets one.
package entry
