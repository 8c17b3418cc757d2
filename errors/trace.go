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

package errors

import (
	"path"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
)

const (
	PathSeparator = "/"
	pathVendor    = "vendor"
	pathMod       = "mod"
	pathPkg       = "pkg"
	pkgRuntime    = "runtime"
)

var (
	filterPkg = path.Clean(ConvPathFromLocal(reflect.TypeOf(UnknownError).PkgPath()))
	currPkgs  = path.Base(ConvPathFromLocal(filterPkg))
)

func ConvPathFromLocal(str string) string {
	return strings.Replace(str, string(filepath.Separator), PathSeparator, -1)
}

func init() {
	if i := strings.LastIndex(filterPkg, PathSeparator+pathVendor+PathSeparator); i != -1 {
		filterPkg = filterPkg[:i+1]
	}
}

// callers captures the current goroutine's call stack via runtime.Callers.
// This is the entirety of this package's stack-capture mechanism - there is
// no third-party tracer underneath it, deliberately: the captured frame is
// only ever used for an internal diagnostic log line (see DESIGN.md), never
// serialized onto the wire, so the stdlib's own frame walker is enough.
func callers() *runtime.Frames {
	programCounters := make([]uintptr, 20, 255)
	n := runtime.Callers(3, programCounters)
	if n == 0 {
		return nil
	}
	return runtime.CallersFrames(programCounters[:n])
}

func toFrame(f runtime.Frame) runtime.Frame {
	return runtime.Frame{Function: f.Function, File: f.File, Line: f.Line}
}

// getFrame returns the first call-stack frame outside this package - the
// caller of NewError/NewErrorChar, typically.
func getFrame() runtime.Frame {
	frames := callers()
	if frames == nil {
		return getNilFrame()
	}

	more := true
	for more {
		var frame runtime.Frame
		frame, more = frames.Next()

		if strings.Contains(frame.Function, currPkgs) {
			continue
		}

		return toFrame(frame)
	}

	return getNilFrame()
}

// getFrameVendor returns up to five distinct non-vendor, non-runtime
// frames from the call stack, used by debug dumps that want more context
// than a single call site.
func getFrameVendor() []runtime.Frame {
	frames := callers()
	res := make([]runtime.Frame, 0)
	if frames == nil {
		return res
	}

	more := true
	for more {
		var frame runtime.Frame
		frame, more = frames.Next()

		item := toFrame(frame)

		switch {
		case strings.Contains(item.Function, currPkgs):
			continue
		case strings.Contains(ConvPathFromLocal(frame.File), PathSeparator+pathVendor+PathSeparator):
			continue
		case strings.HasPrefix(frame.Function, pkgRuntime):
			continue
		case frameInSlice(res, item):
			continue
		}

		res = append(res, item)

		if len(res) > 4 {
			return res
		}
	}

	return res
}

func frameInSlice(s []runtime.Frame, f runtime.Frame) bool {
	if len(s) < 1 {
		return false
	}

	for _, i := range s {
		if i.Function == f.Function && i.File == f.File && i.Line == f.Line {
			return true
		}
	}

	return false
}

func getNilFrame() runtime.Frame {
	return runtime.Frame{Function: "", File: "", Line: 0}
}

func filterPath(pathname string) string {
	var (
		filterMod    = PathSeparator + pathPkg + PathSeparator + pathMod + PathSeparator
		filterVendor = PathSeparator + pathVendor + PathSeparator
	)

	pathname = ConvPathFromLocal(pathname)

	if i := strings.LastIndex(pathname, filterMod); i != -1 {
		i = i + len(filterMod)
		pathname = pathname[i:]
	}

	if i := strings.LastIndex(pathname, filterPkg); i != -1 {
		i = i + len(filterPkg)
		pathname = pathname[i:]
	}

	if i := strings.LastIndex(pathname, filterVendor); i != -1 {
		i = i + len(filterVendor)
		pathname = pathname[i:]
	}

	pathname = path.Clean(pathname)

	return strings.Trim(pathname, PathSeparator)
}
