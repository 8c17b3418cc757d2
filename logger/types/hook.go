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

package types

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// Hook is the shape every logger/hook* package implements (hookfile, hookstderr,
// hookwriter, hooksyslog), composing logrus.Hook and io.WriteCloser with the
// lifecycle methods manage.go needs to start and stop a hook's background
// writer goroutine alongside the rest of a logger's hooks.
type Hook interface {
	logrus.Hook
	io.WriteCloser

	// RegisterHook calls log.AddHook(h); manage.go calls it once per hook
	// when assembling a logger from its config.
	RegisterHook(log *logrus.Logger)

	// Run drives the hook's background writer loop until ctx is cancelled.
	Run(ctx context.Context)

	// IsRunning reports whether Run is currently executing.
	IsRunning() bool
}
