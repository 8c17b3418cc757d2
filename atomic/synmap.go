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

// mt layers a typed V on top of Map[K]. internal/server.Server keeps its
// live peer table as MapTyped[uint64, *peerConn] so the dispatcher never
// has to type-assert a peer back out of an any; the syslog and file
// logging hooks keep their per-target aggregator instances the same way,
// keyed by destination string.
type mt[K comparable, V any] struct {
	m Map[K]
}

// unwrap recasts the any returned by the untyped Map[K] back to V,
// forcing a miss (ok=false) if the stored value somehow isn't a V rather
// than panicking a caller mid dispatch.
func (o *mt[K, V]) unwrap(in any, found bool) (value V, ok bool) {
	if !found {
		return value, false
	}

	v, k := Cast[V](in)
	return v, k
}

func (o *mt[K, V]) Load(key K) (value V, ok bool) {
	return o.unwrap(o.m.Load(key))
}

func (o *mt[K, V]) Store(key K, value V) {
	o.m.Store(key, value)
}

func (o *mt[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	return o.unwrap(o.m.LoadOrStore(key, value))
}

func (o *mt[K, V]) LoadAndDelete(key K) (value V, loaded bool) {
	return o.unwrap(o.m.LoadAndDelete(key))
}

func (o *mt[K, V]) Delete(key K) {
	o.m.Delete(key)
}

func (o *mt[K, V]) Swap(key K, value V) (previous V, loaded bool) {
	return o.unwrap(o.m.Swap(key, value))
}

func (o *mt[K, V]) CompareAndSwap(key K, old, new V) bool {
	return o.m.CompareAndSwap(key, old, new)
}

func (o *mt[K, V]) CompareAndDelete(key K, old V) (deleted bool) {
	return o.m.CompareAndDelete(key, old)
}

// Range walks every entry, evicting anything whose value no longer casts
// to V. The dispatcher uses this to sweep the peer table for metrics
// snapshots without holding a lock across the whole table.
func (o *mt[K, V]) Range(f func(key K, value V) bool) {
	o.m.Range(func(key K, value any) bool {
		v, ok := Cast[V](value)
		if !ok {
			o.m.Delete(key)
			return true
		}

		return f(key, v)
	})
}
