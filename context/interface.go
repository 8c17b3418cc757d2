/*
MIT License

Copyright (c) 2019 Nicolas JUHEL

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package context is the generic, atomic-backed key/value bag the daemon
// hangs off a context.Context: logger/model.go uses Config[uint8] to carry
// per-component log fields and hook state across a peer connection's
// lifetime, and ioutils/mapCloser uses Config[uint64] to index the set of
// open hook writers. Store/Load/Delete are wired straight through to an
// atomic.Map so many peer goroutines can share one Config without a mutex.
package context

import (
	"context"

	libatm "github.com/sabouaram/pmix/atomic"
)

type FuncContextConfig[T comparable] func() Config[T]
type FuncWalk[T comparable] func(key T, val interface{}) bool

type MapManage[T comparable] interface {
	Clean()
	Load(key T) (val interface{}, ok bool)
	Store(key T, cfg interface{})
	Delete(key T)
}

type Context interface {
	GetContext() context.Context
}

// Config pairs a context.Context with a concurrent-safe key/value map keyed
// by T (uint8 for logger field slots, uint64 for mapCloser's closer index).
type Config[T comparable] interface {
	context.Context
	MapManage[T]
	Context

	// Clone copies the current key/value pairs into a new Config rooted at
	// ctx (or the current context if ctx is nil). Used when a peer
	// connection forks its logger fields for a nested dispatch call.
	Clone(ctx context.Context) Config[T]
	// Merge copies cfg's pairs into the current map; no-op if cfg is nil.
	Merge(cfg Config[T]) bool
	Walk(fct FuncWalk[T])
	WalkLimit(fct FuncWalk[T], validKeys ...T)

	LoadOrStore(key T, cfg interface{}) (val interface{}, loaded bool)
	LoadAndDelete(key T) (val interface{}, loaded bool)
}

// New builds a Config rooted at ctx (context.Background if nil), backed by
// an atomic.Map so Store/Load never block each other.
func New[T comparable](ctx context.Context) Config[T] {
	if ctx == nil {
		ctx = context.Background()
	}

	return &ccx[T]{
		m: libatm.NewMapAny[T](),
		x: ctx,
	}
}

// NewConfig is New under its pre-generics name; kept for callers that
// haven't migrated off it yet. No caller in this tree uses it over New.
func NewConfig[T comparable](ctx context.Context) Config[T] {
	return New[T](ctx)
}
