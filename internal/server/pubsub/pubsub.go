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

// Package pubsub is the server-wide publish/lookup/unpublish directory. Like
// kvstore and collective, all mutation is expected to run from the single
// progress goroutine; Lookup's wait path is callback-style (LookupNb) rather
// than blocking, so a parked lookup is just an entry on the pending list that
// Publish or ExpirePending later resolves.
package pubsub

import (
	"time"

	"github.com/sabouaram/pmix/pkg/status"
	"github.com/sabouaram/pmix/pkg/wire"
)

// Persistence is transported but not enforced by this layer beyond the
// FirstRead remove-after-read rule.
type Persistence string

const (
	FirstRead  Persistence = "first_read"
	Proc       Persistence = "proc"
	App        Persistence = "app"
	Session    Persistence = "session"
	Indefinite Persistence = "indefinite"
)

type entry struct {
	value     wire.Value
	namespace string
}

// pending is one parked Lookup(wait=true) call.
type pending struct {
	keys        []string
	persistence Persistence
	deadline    time.Time // zero means no timeout
	callback    func(found map[string]wire.Value, sc status.Code)
}

// Directory is the publish/lookup/unpublish table.
type Directory struct {
	// entries[persistence][key]
	entries map[Persistence]map[string]entry
	pending []*pending
}

func New() *Directory {
	return &Directory{entries: make(map[Persistence]map[string]entry)}
}

// KV is one published key/value pair.
type KV struct {
	Key   string
	Value wire.Value
}

// Publish stores every entry under the given namespace and persistence, then
// wakes any pending lookups that are now fully satisfied.
func (d *Directory) Publish(namespace string, persistence Persistence, kvs []KV) status.Code {
	bucket, ok := d.entries[persistence]
	if !ok {
		bucket = make(map[string]entry)
		d.entries[persistence] = bucket
	}
	for _, kv := range kvs {
		bucket[kv.Key] = entry{value: kv.Value, namespace: namespace}
	}

	d.wakePending()
	return status.Success
}

// tryResolve reports whether every key in keys is present at persistence,
// and if so returns the collected values. It does not mutate the directory;
// callers must call consumeFirstRead afterward to honor FirstRead semantics.
func (d *Directory) tryResolve(keys []string, persistence Persistence) (map[string]wire.Value, bool) {
	bucket, ok := d.entries[persistence]
	if !ok {
		return nil, false
	}
	found := make(map[string]wire.Value, len(keys))
	for _, k := range keys {
		e, ok := bucket[k]
		if !ok {
			return nil, false
		}
		found[k] = e.value
	}
	return found, true
}

func (d *Directory) consumeFirstRead(keys []string, persistence Persistence) {
	if persistence != FirstRead {
		return
	}
	bucket, ok := d.entries[persistence]
	if !ok {
		return
	}
	for _, k := range keys {
		delete(bucket, k)
	}
}

// Lookup resolves keys at the given persistence. With wait=false, a missing
// key fails the whole call with NotFound; with wait=true, the call parks
// until all keys are present or timeout elapses (zero timeout means no
// expiry), then callback is invoked exactly once either way.
func (d *Directory) Lookup(keys []string, persistence Persistence, wait bool, timeout time.Duration, now time.Time, callback func(found map[string]wire.Value, sc status.Code)) {
	if found, ok := d.tryResolve(keys, persistence); ok {
		d.consumeFirstRead(keys, persistence)
		callback(found, status.Success)
		return
	}

	if !wait {
		callback(nil, status.ErrNotFound)
		return
	}

	p := &pending{keys: keys, persistence: persistence, callback: callback}
	if timeout > 0 {
		p.deadline = now.Add(timeout)
	}
	d.pending = append(d.pending, p)
}

func (d *Directory) wakePending() {
	var remaining []*pending
	for _, p := range d.pending {
		if found, ok := d.tryResolve(p.keys, p.persistence); ok {
			d.consumeFirstRead(p.keys, p.persistence)
			p.callback(found, status.Success)
			continue
		}
		remaining = append(remaining, p)
	}
	d.pending = remaining
}

// ExpirePending must be called periodically by the progress loop (e.g. on
// its timer tick) to time out parked lookups whose deadline has passed.
func (d *Directory) ExpirePending(now time.Time) {
	var remaining []*pending
	for _, p := range d.pending {
		if !p.deadline.IsZero() && !now.Before(p.deadline) {
			p.callback(nil, status.ErrTimeout)
			continue
		}
		remaining = append(remaining, p)
	}
	d.pending = remaining
}

// PendingCount reports the number of currently parked lookups.
func (d *Directory) PendingCount() int {
	return len(d.pending)
}

// Unpublish purges entries owned by namespace. A nil keys list purges every
// key the namespace owns at the given persistence; an empty persistence
// string purges at every persistence level.
func (d *Directory) Unpublish(namespace string, keys []string, persistence Persistence) status.Code {
	persistences := []Persistence{persistence}
	if persistence == "" {
		persistences = []Persistence{FirstRead, Proc, App, Session, Indefinite}
	}

	for _, per := range persistences {
		bucket, ok := d.entries[per]
		if !ok {
			continue
		}
		if keys == nil {
			for k, e := range bucket {
				if e.namespace == namespace {
					delete(bucket, k)
				}
			}
			continue
		}
		for _, k := range keys {
			if e, ok := bucket[k]; ok && e.namespace == namespace {
				delete(bucket, k)
			}
		}
	}
	return status.Success
}
