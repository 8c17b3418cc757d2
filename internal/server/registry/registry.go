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

// Package registry owns namespace and rank-info registration and builds the
// job-info blob replayed to each connecting client, including the NODE_MAP
// and PROC_MAP compressed node/proc maps and per-rank PROC_DATA attributes.
package registry

import (
	"fmt"

	"github.com/sabouaram/pmix/internal/nodemap"
	"github.com/sabouaram/pmix/pkg/status"
	"github.com/sabouaram/pmix/pkg/wire"
)

// Well-known job-info keys understood specially at registration time; every
// other key is passed through to the blob unchanged.
const (
	KeyNodeMap  = "NODE_MAP"
	KeyProcMap  = "PROC_MAP"
	KeyProcData = "PROC_DATA"
)

// ProcBlobKey is the blob key a rank's PROC_DATA attributes are stored
// under, disambiguated by rank since a flat job-info blob carries every
// rank's attributes side by side.
func ProcBlobKey(rank int32) string {
	return fmt.Sprintf("PROC_BLOB:%d", rank)
}

// InfoEntry is one (key, value) pair supplied by the host at registration,
// mirroring the info-array the real registration call carries. ProcData, if
// set, holds the nested (key,value) pairs for a KeyProcData entry whose
// first info-array element is conventionally the rank; callers peel the
// rank off into Rank before building the entry.
type InfoEntry struct {
	Key   string
	Value wire.Value

	// Only meaningful when Key == KeyProcData.
	ProcDataRank int32
	ProcData     []InfoEntry
}

// RankInfo is a live (namespace, rank) registration record.
type RankInfo struct {
	Namespace *Namespace
	Rank      int32
	UID       uint32
	GID       uint32
	Server    any
	RefCount  int
}

// Namespace scopes a set of ranks under one host-assigned job identity.
type Namespace struct {
	Name            string
	NumLocalProcs   int
	AllRegistered   bool
	Ranks           map[int32]*RankInfo
	JobInfoBlob     []byte
	registeredCount int
}

// Registry is the server-wide namespace table.
type Registry struct {
	namespaces map[string]*Namespace
}

func New() *Registry {
	return &Registry{namespaces: make(map[string]*Namespace)}
}

// RegisterNamespace creates a namespace and builds its job-info blob from
// the host-supplied info array. NODE_MAP and PROC_MAP entries are
// decompressed then re-packed as string arrays; PROC_DATA entries are
// peeled into per-rank nested sub-buffers stored under ProcBlobKey(rank).
func (r *Registry) RegisterNamespace(name string, numLocalProcs int, info []InfoEntry) status.Code {
	if name == "" {
		return status.ErrBadParam
	}
	if _, exists := r.namespaces[name]; exists {
		return status.ErrResourceBusy
	}

	buf := wire.New(wire.FullyDesc)

	for _, e := range info {
		switch e.Key {
		case KeyNodeMap:
			nodes, err := nodemap.ParseNodes(e.Value.StringOrEmpty())
			if err != nil {
				return status.ErrBadParam
			}
			if sc := wire.PackKV(buf, KeyNodeMap, wire.NewArray(wire.TypeString, nodes)); sc != status.Success {
				return sc
			}
		case KeyProcMap:
			groups, err := nodemap.ParseProcs(e.Value.StringOrEmpty())
			if err != nil {
				return status.ErrBadParam
			}
			flat := make([]string, len(groups))
			for i, g := range groups {
				s := ""
				for j, v := range g {
					if j > 0 {
						s += ","
					}
					s += v
				}
				flat[i] = s
			}
			if sc := wire.PackKV(buf, KeyProcMap, wire.NewArray(wire.TypeString, flat)); sc != status.Success {
				return sc
			}
		case KeyProcData:
			child := wire.New(wire.FullyDesc)
			for _, kv := range e.ProcData {
				if sc := wire.PackKV(child, kv.Key, kv.Value); sc != status.Success {
					return sc
				}
			}
			if sc := wire.PackKV(buf, ProcBlobKey(e.ProcDataRank), wire.NewByteObject(child.Bytes())); sc != status.Success {
				return sc
			}
		default:
			if sc := wire.PackKV(buf, e.Key, e.Value); sc != status.Success {
				return sc
			}
		}
	}

	r.namespaces[name] = &Namespace{
		Name:          name,
		NumLocalProcs: numLocalProcs,
		Ranks:         make(map[int32]*RankInfo),
		JobInfoBlob:   buf.Bytes(),
	}
	return status.Success
}

// DeregisterNamespace removes a namespace and all of its rank-info records.
func (r *Registry) DeregisterNamespace(name string) status.Code {
	if _, ok := r.namespaces[name]; !ok {
		return status.ErrNotFound
	}
	delete(r.namespaces, name)
	return status.Success
}

// Namespace looks up a namespace by name.
func (r *Registry) Namespace(name string) (*Namespace, status.Code) {
	ns, ok := r.namespaces[name]
	if !ok {
		return nil, status.ErrNotFound
	}
	return ns, status.Success
}

// RankExists reports whether a rank is registered under a namespace.
func (r *Registry) RankExists(ns string, rank int32) bool {
	n, ok := r.namespaces[ns]
	if !ok {
		return false
	}
	_, ok = n.Ranks[rank]
	return ok
}

// RegisterClient creates (or, for a reconnecting/forked rank, reference
// counts) the rank-info record for (namespace, rank). allRegistered reports
// whether this call caused the namespace to flip AllRegistered, so the
// caller can wake collective trackers waiting on it.
func (r *Registry) RegisterClient(ns string, rank int32, uid, gid uint32, serverObj any) (allRegistered bool, sc status.Code) {
	n, ok := r.namespaces[ns]
	if !ok {
		return false, status.ErrNotFound
	}

	if ri, exists := n.Ranks[rank]; exists {
		ri.RefCount++
		return n.AllRegistered, status.Success
	}

	n.Ranks[rank] = &RankInfo{
		Namespace: n,
		Rank:      rank,
		UID:       uid,
		GID:       gid,
		Server:    serverObj,
		RefCount:  1,
	}
	n.registeredCount++

	flipped := false
	if !n.AllRegistered && n.registeredCount >= n.NumLocalProcs {
		n.AllRegistered = true
		flipped = true
	}
	return flipped, status.Success
}

// ReleaseClient decrements a rank's live-connection refcount on peer
// disconnect. The rank-info record itself survives at zero (it still
// belongs to the namespace; only an explicit DeregisterNamespace removes
// it) so a rank that later reconnects, e.g. after a fork, is still known.
func (r *Registry) ReleaseClient(ns string, rank int32) status.Code {
	n, ok := r.namespaces[ns]
	if !ok {
		return status.ErrNotFound
	}
	ri, ok := n.Ranks[rank]
	if !ok {
		return status.ErrNotFound
	}
	if ri.RefCount > 0 {
		ri.RefCount--
	}
	return status.Success
}

// RankInfo looks up the rank-info record for (namespace, rank).
func (r *Registry) RankInfo(ns string, rank int32) (*RankInfo, status.Code) {
	n, ok := r.namespaces[ns]
	if !ok {
		return nil, status.ErrNotFound
	}
	ri, ok := n.Ranks[rank]
	if !ok {
		return nil, status.ErrNotFound
	}
	return ri, status.Success
}
