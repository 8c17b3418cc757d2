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

// Package atomic provides lock-free single-value and map containers built
// on sync/atomic and sync.Map. The engine's hot paths - the dispatcher's
// peer table, the log aggregator's start/stop state, and the generic
// request-scoped context store - all need concurrent reads from the
// transport goroutines without blocking the single-threaded progress loop,
// which is what this package buys over a mutex-guarded map.
package atomic

import (
	"sync"
	"sync/atomic"
)

// Value is a typed, lock-free single-value cell with configurable
// fallbacks for an unset Load and a zero-valued Store. The dispatcher uses
// one per connected peer to hold things like the peer's cancel func and
// running state, where a plain atomic.Value would force type assertions
// at every call site.
type Value[T any] interface {
	// SetDefaultLoad sets what Load returns before any value has been
	// stored. Call it once at construction, before the value is shared.
	SetDefaultLoad(def T)
	// SetDefaultStore sets what a zero-valued Store is replaced with.
	// Call it once at construction, before the value is shared.
	SetDefaultStore(def T)

	// Load returns the current value, or the configured default-load
	// value if nothing has been stored yet.
	Load() (val T)
	// Store sets the value. A zero T is substituted with the
	// configured default-store value rather than persisted as-is.
	//
	//  v := NewValue[int]()
	//  v.SetDefaultStore(42)
	//  v.Store(0)  // stores 42
	//  v.Store(99) // stores 99
	Store(val T)
	// Swap stores new and returns the value it replaced.
	Swap(new T) (old T)
	// CompareAndSwap stores new only if the current value equals old,
	// reporting whether the swap happened.
	CompareAndSwap(old, new T) (swapped bool)
}

// Map is the untyped counterpart to MapTyped, backing the request-scoped
// key/value store in the context package where the value type varies per
// key and can't be fixed at compile time.
type Map[K comparable] interface {
	Load(key K) (value any, ok bool)
	Store(key K, value any)
	LoadOrStore(key K, value any) (actual any, loaded bool)
	LoadAndDelete(key K) (value any, loaded bool)
	Delete(key K)
	Swap(key K, value any) (previous any, loaded bool)
	CompareAndSwap(key K, old, new any) bool
	CompareAndDelete(key K, old any) (deleted bool)
	// Range visits every entry in unspecified order until f returns
	// false.
	Range(f func(key K, value any) bool)
}

// MapTyped is Map with a fixed value type, used for the server's peer
// table (keyed by connection id, valued by *peerConn) and the per-target
// log aggregator registries, where both key and value shapes are known
// ahead of time and a type assertion on every access would just be noise.
type MapTyped[K comparable, V any] interface {
	Load(key K) (value V, ok bool)
	Store(key K, value V)
	LoadOrStore(key K, value V) (actual V, loaded bool)
	LoadAndDelete(key K) (value V, loaded bool)
	Delete(key K)
	Swap(key K, value V) (previous V, loaded bool)
	CompareAndSwap(key K, old, new V) bool
	CompareAndDelete(key K, old V) (deleted bool)
	Range(f func(key K, value V) bool)
}

// NewValue returns a Value[T] whose default load and store values are
// both the zero value of T.
func NewValue[T any]() Value[T] {
	var zero T
	return NewValueDefault[T](zero, zero)
}

// NewValueDefault returns a Value[T] with explicit default-load and
// default-store values, set before the cell is handed to its caller.
func NewValueDefault[T any](load, store T) Value[T] {
	o := &val[T]{
		av: new(atomic.Value),
		dl: new(atomic.Value),
		ds: new(atomic.Value),
	}

	o.SetDefaultLoad(load)
	o.SetDefaultStore(store)

	return o
}

// NewMapAny returns a Map[K] backed by sync.Map.
func NewMapAny[K comparable]() Map[K] {
	return &ma[K]{
		m: sync.Map{},
	}
}

// NewMapTyped returns a MapTyped[K, V] layered on top of a fresh
// NewMapAny[K].
func NewMapTyped[K comparable, V any]() MapTyped[K, V] {
	return &mt[K, V]{
		m: NewMapAny[K](),
	}
}
