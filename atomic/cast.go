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

package atomic

import "reflect"

// Cast narrows an any-typed slot back to M, used throughout this package
// wherever sync/atomic.Value erases the static type: the peer table in
// internal/server stores *peerConn behind a Value[T], the aggregator's
// lifecycle fields store context.CancelFunc and StartStop the same way.
//
// A src that is the zero value of M is treated as "nothing stored yet"
// rather than a real M, so a freshly-created atomic slot reads back as
// not-cast instead of silently returning a zero value that looks valid.
func Cast[M any](src any) (model M, casted bool) {
	if reflect.DeepEqual(src, model) {
		return model, false
	} else if v, k := src.(M); !k {
		return model, false
	} else {
		return v, true
	}
}

// IsEmpty reports whether src holds nothing meaningful for M: either it
// doesn't cast to M at all, or it casts to M's zero value. Value[T].Store
// uses this to decide whether an incoming write should fall back to the
// configured default-store value instead of persisting a bare zero (e.g.
// a Store(0) on a peer's last-seen tag should not clobber a real default).
func IsEmpty[M any](src any) bool {
	_, k := Cast[M](src)
	return !k
}
