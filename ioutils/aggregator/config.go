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
 */

package aggregator

import (
	"context"
	"time"
)

// Config builds the aggregator a logger hook (hookfile, hooksyslog) wraps
// its actual sink in, so concurrent log writes from many peer goroutines
// serialize down to one writer instead of interleaving mid-line.
type Config struct {
	// AsyncTimer, if > 0 with AsyncFct set, calls AsyncFct on that interval
	// in its own goroutine (non-blocking) — e.g. a syslog hook's periodic
	// reconnect check.
	AsyncTimer time.Duration

	// AsyncMax caps concurrent AsyncFct calls; 0 runs them sequentially.
	AsyncMax int

	AsyncFct func(ctx context.Context)

	// SyncTimer, if > 0 with SyncFct set, calls SyncFct on that interval
	// from the aggregator's own run loop (blocking) — e.g. a file hook's
	// periodic flush-and-rotate check.
	SyncTimer time.Duration

	SyncFct func(ctx context.Context)

	// BufWriter sizes the write channel; 0 defaults to 1. Sized to the
	// expected burst of simultaneous peer log writes under one hook.
	BufWriter int

	// FctWriter receives each write sequentially (never concurrently) -
	// the actual file.Write/syslog.Write this aggregator serializes calls
	// into. Required.
	FctWriter func(p []byte) (n int, err error)
}
