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

// Package kvstore holds the per-(namespace,rank) key/value tables that back
// Put/Commit/Get. All mutation is expected to run from the single progress
// goroutine (see internal/server/progress); the store itself does no
// internal locking, mirroring the single-threaded core the source assumes.
package kvstore

import (
	"github.com/sabouaram/pmix/pkg/status"
	"github.com/sabouaram/pmix/pkg/wire"
)

// Scope classifies a key/value entry's intended visibility.
type Scope uint8

const (
	ScopeLocal Scope = iota
	ScopeRemote
	ScopeGlobal
)

type entry struct {
	key   string
	val   wire.Value
	scope Scope
}

type rankBucket struct {
	order []string // insertion order of keys currently present
	byKey map[string]entry
}

func newRankBucket() *rankBucket {
	return &rankBucket{byKey: make(map[string]entry)}
}

func (rb *rankBucket) put(key string, v wire.Value, scope Scope) {
	if _, exists := rb.byKey[key]; !exists {
		rb.order = append(rb.order, key)
	}
	rb.byKey[key] = entry{key: key, val: v, scope: scope}
}

func (rb *rankBucket) remove(key string) bool {
	if _, ok := rb.byKey[key]; !ok {
		return false
	}
	delete(rb.byKey, key)
	for i, k := range rb.order {
		if k == key {
			rb.order = append(rb.order[:i], rb.order[i+1:]...)
			break
		}
	}
	return true
}

// rankKey identifies a bucket by namespace and rank.
type rankKey struct {
	ns   string
	rank int32
}

// pendingGet is one parked GetNb call waiting on a future Commit/Fence for
// the same (namespace, rank).
type pendingGet struct {
	key      string
	callback func(v wire.Value, sc status.Code)
}

// Store is the server-wide KV table, indexed by (namespace, rank).
type Store struct {
	buckets map[rankKey]*rankBucket
	pending map[rankKey][]*pendingGet
}

func New() *Store {
	return &Store{
		buckets: make(map[rankKey]*rankBucket),
		pending: make(map[rankKey][]*pendingGet),
	}
}

// Put inserts or, if the key already exists for that (namespace,rank),
// replaces the entry in place (insertion order is not preserved across a
// replacement-by-removal-then-append; replacement in place keeps order).
func (s *Store) Put(ns string, rank int32, key string, v wire.Value, scope Scope) {
	k := rankKey{ns, rank}
	rb, ok := s.buckets[k]
	if !ok {
		rb = newRankBucket()
		s.buckets[k] = rb
	}
	rb.put(key, v, scope)
}

// Get returns a deep-copy-equivalent Value (wire.Value is already
// immutable-by-value apart from its pointer/slice payloads, which unpack
// always allocates fresh, so the stored value is returned directly; callers
// must not mutate through a Value's pointer/slice fields).
func (s *Store) Get(ns string, rank int32, key string) (wire.Value, status.Code) {
	rb, ok := s.buckets[rankKey{ns, rank}]
	if !ok {
		return wire.Value{}, status.ErrNotFound
	}
	e, ok := rb.byKey[key]
	if !ok {
		return wire.Value{}, status.ErrNotFound
	}
	return e.val, status.Success
}

// GetAll returns every entry for (namespace,rank) in insertion order.
func (s *Store) GetAll(ns string, rank int32) ([]KV, status.Code) {
	rb, ok := s.buckets[rankKey{ns, rank}]
	if !ok {
		return nil, status.ErrNotFound
	}
	out := make([]KV, 0, len(rb.order))
	for _, k := range rb.order {
		e := rb.byKey[k]
		out = append(out, KV{Key: e.key, Value: e.val, Scope: e.scope})
	}
	return out, status.Success
}

// KV is a materialized key/value/scope triple returned by bulk retrieval.
type KV struct {
	Key   string
	Value wire.Value
	Scope Scope
}

// Remove deletes a single entry. Removing the only remaining entry does not
// itself tear down the bucket; use RemoveRank for that.
func (s *Store) Remove(ns string, rank int32, key string) status.Code {
	rb, ok := s.buckets[rankKey{ns, rank}]
	if !ok {
		return status.ErrNotFound
	}
	if !rb.remove(key) {
		return status.ErrNotFound
	}
	return status.Success
}

// RemoveRank drops every entry for (namespace,rank) and the bucket itself.
func (s *Store) RemoveRank(ns string, rank int32) {
	delete(s.buckets, rankKey{ns, rank})
}

// RemoveNamespace drops every bucket belonging to a namespace, used when the
// namespace is torn down.
func (s *Store) RemoveNamespace(ns string) {
	for k := range s.buckets {
		if k.ns == ns {
			delete(s.buckets, k)
		}
	}
}

// EntryCount returns the total number of committed entries held across
// every rank of a namespace, for reporting the KV size gauge.
func (s *Store) EntryCount(ns string) int {
	n := 0
	for k, rb := range s.buckets {
		if k.ns == ns {
			n += len(rb.order)
		}
	}
	return n
}

// GetNb resolves (namespace, rank, key) immediately if present. Otherwise
// the request parks on that rank's pending-get list until a later call to
// NotifyCommitted for the same (namespace, rank) wakes it; a parked request
// that is never woken is the caller's responsibility to time out.
func (s *Store) GetNb(ns string, rank int32, key string, callback func(v wire.Value, sc status.Code)) {
	if v, sc := s.Get(ns, rank, key); sc == status.Success {
		callback(v, sc)
		return
	}
	k := rankKey{ns, rank}
	s.pending[k] = append(s.pending[k], &pendingGet{key: key, callback: callback})
}

// NotifyCommitted wakes every parked GetNb request for (namespace, rank)
// whose key has since become available, called after a Commit or Fence for
// that rank. Requests whose key is still missing remain parked.
func (s *Store) NotifyCommitted(ns string, rank int32) {
	k := rankKey{ns, rank}
	waiting := s.pending[k]
	if len(waiting) == 0 {
		return
	}

	var remaining []*pendingGet
	for _, pg := range waiting {
		if v, sc := s.Get(ns, rank, pg.key); sc == status.Success {
			pg.callback(v, sc)
			continue
		}
		remaining = append(remaining, pg)
	}
	if len(remaining) == 0 {
		delete(s.pending, k)
	} else {
		s.pending[k] = remaining
	}
}

// PendingCount reports the number of currently parked GetNb requests for
// (namespace, rank).
func (s *Store) PendingCount(ns string, rank int32) int {
	return len(s.pending[rankKey{ns, rank}])
}
