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

// Package dispatch is the command switchyard: it decodes a peer message's
// leading u32 opcode and routes to the handler that owns the matching server
// state (kvstore, registry, collective, pubsub), packaging the result into a
// reply framed on the request's own tag. Every handler here is expected to
// run on the single progress goroutine (internal/server/progress); none of
// the state it touches does its own locking.
package dispatch

import (
	"fmt"

	"github.com/sabouaram/pmix/internal/server/collective"
	"github.com/sabouaram/pmix/internal/server/kvstore"
	"github.com/sabouaram/pmix/internal/server/pubsub"
	"github.com/sabouaram/pmix/internal/server/registry"
	"github.com/sabouaram/pmix/pkg/status"
	"github.com/sabouaram/pmix/pkg/wire"
)

// Opcode is the leading u32 field of every command frame's payload.
type Opcode uint32

const (
	OpAbort Opcode = iota + 1
	OpCommit
	OpFenceNb
	OpGetNb
	OpFinalize
	OpPublishNb
	OpLookupNb
	OpUnpublishNb
	OpSpawnNb
	OpConnect
	OpDisconnect
)

func (o Opcode) String() string {
	switch o {
	case OpAbort:
		return "abort"
	case OpCommit:
		return "commit"
	case OpFenceNb:
		return "fence_nb"
	case OpGetNb:
		return "get_nb"
	case OpFinalize:
		return "finalize"
	case OpPublishNb:
		return "publish_nb"
	case OpLookupNb:
		return "lookup_nb"
	case OpUnpublishNb:
		return "unpublish_nb"
	case OpSpawnNb:
		return "spawn_nb"
	case OpConnect:
		return "connect"
	case OpDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Peer is the dispatcher's view of one connected client, enough to resolve
// Commit/GetNb/Abort/Finalize requests to their owning (namespace, rank) and
// to address their replies.
type Peer struct {
	ID        uint64
	Tag       uint64
	Namespace string
	Rank      int32
}

// Host is the set of async callbacks the dispatcher delegates to the
// workload-manager host for operations this core does not itself own.
type Host interface {
	Abort(ns string, rank int32, reason string) status.Code
	Finalize(ns string, rank int32)
	FenceNb(kind collective.Kind, participants []collective.Participant, data []byte) (result []byte, sc status.Code)
	SpawnNb(ns string, apps []byte, reply func(newNamespace string, sc status.Code))
	// GetNb resolves a key this core's own KV store and registry could
	// not: either the (ns, rank) pair is not a locally-registered rank
	// (e.g. a peer from a different launch the host still tracks), or
	// the key belongs to a job-info attribute only the host can supply.
	// reply is called exactly once, asynchronously, with the resolved
	// value or a status.Code explaining why resolution failed.
	GetNb(ns string, rank int32, key string, reply func(v wire.Value, sc status.Code))
}

// Sink is how the dispatcher delivers a reply or closes out a peer's read
// side, matching the "queue reply" / "disable read" macros of the progress
// model (see internal/server/progress).
type Sink interface {
	QueueReply(peerID uint64, tag uint64, payload []byte)
	DisableRead(peerID uint64)
}

// Metrics is the optional set of observability hooks the dispatcher reports
// through as it handles commands; a nil Metrics on Dispatcher disables all
// of it.
type Metrics interface {
	ObserveFenceLatency(kind string, seconds float64)
	SetKVEntries(namespace string, count int)
}

// Dispatcher wires together every piece of server state a command might
// touch and routes inbound opcodes to the handler that owns it.
type Dispatcher struct {
	KV      *kvstore.Store
	Reg     *registry.Registry
	Coll    *collective.Manager
	Pub     *pubsub.Directory
	Host    Host
	Sink    Sink
	Metrics Metrics
	peers   map[uint64]*Peer
}

// New builds a Dispatcher over already-constructed collaborators. Metrics
// may be set afterward on the returned Dispatcher; it is nil-safe.
func New(kv *kvstore.Store, reg *registry.Registry, coll *collective.Manager, pub *pubsub.Directory, host Host, sink Sink) *Dispatcher {
	return &Dispatcher{
		KV:    kv,
		Reg:   reg,
		Coll:  coll,
		Pub:   pub,
		Host:  host,
		Sink:  sink,
		peers: make(map[uint64]*Peer),
	}
}

// Attach registers a peer that has completed the rendezvous handshake,
// making it addressable by subsequent Dispatch calls on its ID.
func (d *Dispatcher) Attach(p *Peer) {
	d.peers[p.ID] = p
}

// Detach removes a peer, e.g. after Finalize or an unexpected disconnect.
func (d *Dispatcher) Detach(peerID uint64) {
	delete(d.peers, peerID)
}

// Dispatch unpacks the leading opcode from payload and routes to its
// handler. tag is the reply tag the request arrived on; every reply this
// call produces (synchronously here, or later via Sink for async ops) must
// be framed on the same tag.
func (d *Dispatcher) Dispatch(peerID uint64, tag uint64, payload []byte) {
	buf := wire.NewFromBytes(wire.FullyDesc, payload)

	ov, sc := wire.UnpackValue(buf, wire.TypeUint32)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	op := Opcode(ov.Uint32())

	peer := d.peers[peerID]

	switch op {
	case OpAbort:
		d.handleAbort(peer, peerID, tag, buf)
	case OpCommit:
		d.handleCommit(peer, peerID, tag, buf)
	case OpFenceNb:
		d.handleCollective(collective.KindFence, peer, peerID, tag, buf)
	case OpGetNb:
		d.handleGetNb(peer, peerID, tag, buf)
	case OpFinalize:
		d.handleFinalize(peer, peerID, tag)
	case OpPublishNb:
		d.handlePublishNb(peer, peerID, tag, buf)
	case OpLookupNb:
		d.handleLookupNb(peer, peerID, tag, buf)
	case OpUnpublishNb:
		d.handleUnpublishNb(peer, peerID, tag, buf)
	case OpSpawnNb:
		d.handleSpawnNb(peer, peerID, tag, buf)
	case OpConnect:
		d.handleCollective(collective.KindConnect, peer, peerID, tag, buf)
	case OpDisconnect:
		d.handleCollective(collective.KindDisconnect, peer, peerID, tag, buf)
	default:
		d.reply(peerID, tag, status.ErrNotSupported, nil)
	}
}

// reply packs a bare status code (and optional extra payload) and queues it
// on the originating peer's tag.
func (d *Dispatcher) reply(peerID uint64, tag uint64, sc status.Code, extra []byte) {
	buf := wire.New(wire.FullyDesc)
	wire.PackValue(buf, wire.NewInt32(int32(sc)))
	out := buf.Bytes()
	if len(extra) > 0 {
		out = append(out, extra...)
	}
	d.Sink.QueueReply(peerID, tag, out)
}

func (d *Dispatcher) handleAbort(peer *Peer, peerID uint64, tag uint64, buf *wire.Buffer) {
	if peer == nil {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	rv, sc := wire.UnpackValue(buf, wire.TypeString)
	reason := ""
	if sc == status.Success {
		reason = rv.StringOrEmpty()
	}

	sc = d.Host.Abort(peer.Namespace, peer.Rank, reason)
	d.reply(peerID, tag, sc, nil)
	if sc == status.Success {
		d.Sink.DisableRead(peerID)
	}
}

// handleCommit appends every (key, value) pair carried in the payload to the
// peer's rank bucket, then wakes any GetNb calls parked on that rank.
func (d *Dispatcher) handleCommit(peer *Peer, peerID uint64, tag uint64, buf *wire.Buffer) {
	if peer == nil {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}

	nv, sc := wire.UnpackValue(buf, wire.TypeUint32)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	count := int(nv.Uint32())

	for i := 0; i < count; i++ {
		key, v, kvSc := wire.UnpackKV(buf)
		if kvSc != status.Success {
			d.reply(peerID, tag, status.ErrBadParam, nil)
			return
		}
		d.KV.Put(peer.Namespace, peer.Rank, key, v, kvstore.ScopeGlobal)
	}

	d.KV.NotifyCommitted(peer.Namespace, peer.Rank)
	if d.Metrics != nil {
		d.Metrics.SetKVEntries(peer.Namespace, d.KV.EntryCount(peer.Namespace))
	}
	d.reply(peerID, tag, status.Success, nil)
}

func (d *Dispatcher) handleGetNb(peer *Peer, peerID uint64, tag uint64, buf *wire.Buffer) {
	nsv, sc := wire.UnpackValue(buf, wire.TypeString)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	rv, sc := wire.UnpackValue(buf, wire.TypeInt32)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	kv, sc := wire.UnpackValue(buf, wire.TypeString)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}

	ns := nsv.StringOrEmpty()
	rank := rv.Int32()
	key := kv.StringOrEmpty()

	if !d.Reg.RankExists(ns, rank) {
		// Not resolvable locally: escalate to the host rather than
		// failing outright, since the host may still know about a
		// rank this core never registered (e.g. a peer launched by a
		// different job step).
		if d.Host == nil {
			d.reply(peerID, tag, status.ErrNotFound, nil)
			return
		}

		d.Host.GetNb(ns, rank, key, func(v wire.Value, sc status.Code) {
			out := wire.New(wire.FullyDesc)
			if sc == status.Success {
				wire.PackValue(out, v)
			}
			d.reply(peerID, tag, sc, out.Bytes())
		})
		return
	}

	d.KV.GetNb(ns, rank, key, func(v wire.Value, sc status.Code) {
		out := wire.New(wire.FullyDesc)
		if sc == status.Success {
			wire.PackValue(out, v)
		}
		d.reply(peerID, tag, sc, out.Bytes())
	})
}

func (d *Dispatcher) handleFinalize(peer *Peer, peerID uint64, tag uint64) {
	if peer == nil {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	d.Host.Finalize(peer.Namespace, peer.Rank)
	d.reply(peerID, tag, status.Success, nil)
	d.Sink.DisableRead(peerID)
}

func (d *Dispatcher) handlePublishNb(peer *Peer, peerID uint64, tag uint64, buf *wire.Buffer) {
	if peer == nil {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	pv, sc := wire.UnpackValue(buf, wire.TypeString)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	nv, sc := wire.UnpackValue(buf, wire.TypeUint32)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	count := int(nv.Uint32())

	kvs := make([]pubsub.KV, 0, count)
	for i := 0; i < count; i++ {
		key, v, kvSc := wire.UnpackKV(buf)
		if kvSc != status.Success {
			d.reply(peerID, tag, status.ErrBadParam, nil)
			return
		}
		kvs = append(kvs, pubsub.KV{Key: key, Value: v})
	}

	sc = d.Pub.Publish(peer.Namespace, pubsub.Persistence(pv.StringOrEmpty()), kvs)
	d.reply(peerID, tag, sc, nil)
}

func (d *Dispatcher) handleLookupNb(peer *Peer, peerID uint64, tag uint64, buf *wire.Buffer) {
	pv, sc := wire.UnpackValue(buf, wire.TypeString)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	wv, sc := wire.UnpackValue(buf, wire.TypeBool)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	tov, sc := wire.UnpackValue(buf, wire.TypeInt64)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	nv, sc := wire.UnpackValue(buf, wire.TypeUint32)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	count := int(nv.Uint32())

	keys := make([]string, 0, count)
	for i := 0; i < count; i++ {
		kv, kSc := wire.UnpackValue(buf, wire.TypeString)
		if kSc != status.Success {
			d.reply(peerID, tag, status.ErrBadParam, nil)
			return
		}
		keys = append(keys, kv.StringOrEmpty())
	}

	persistence := pubsub.Persistence(pv.StringOrEmpty())
	wait := wv.Bool()
	timeout := timeoutFromMillis(tov.Int64())

	d.Pub.Lookup(keys, persistence, wait, timeout, now(), func(found map[string]wire.Value, sc status.Code) {
		out := wire.New(wire.FullyDesc)
		wire.PackValue(out, wire.NewUint32(uint32(len(found))))
		for k, v := range found {
			wire.PackKV(out, k, v)
		}
		d.reply(peerID, tag, sc, out.Bytes())
	})
}

func (d *Dispatcher) handleUnpublishNb(peer *Peer, peerID uint64, tag uint64, buf *wire.Buffer) {
	if peer == nil {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	pv, sc := wire.UnpackValue(buf, wire.TypeString)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	nv, sc := wire.UnpackValue(buf, wire.TypeUint32)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	count := int(nv.Uint32())

	var keys []string
	if count > 0 {
		keys = make([]string, 0, count)
		for i := 0; i < count; i++ {
			kv, kSc := wire.UnpackValue(buf, wire.TypeString)
			if kSc != status.Success {
				d.reply(peerID, tag, status.ErrBadParam, nil)
				return
			}
			keys = append(keys, kv.StringOrEmpty())
		}
	}

	sc = d.Pub.Unpublish(peer.Namespace, keys, pubsub.Persistence(pv.StringOrEmpty()))
	d.reply(peerID, tag, sc, nil)
}

func (d *Dispatcher) handleSpawnNb(peer *Peer, peerID uint64, tag uint64, buf *wire.Buffer) {
	if peer == nil {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	av, sc := wire.UnpackValue(buf, wire.TypeByteObject)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}

	d.Host.SpawnNb(peer.Namespace, av.ByteObject(), func(newNamespace string, sc status.Code) {
		out := wire.New(wire.FullyDesc)
		wire.PackValue(out, wire.NewStringV(newNamespace))
		d.reply(peerID, tag, sc, out.Bytes())
	})
}

// handleCollective decodes a participants list and joins it to the matching
// tracker; once every expected participant has joined, the host's collective
// callback runs once and a single reply is fanned out to every local
// participant on its own saved tag.
func (d *Dispatcher) handleCollective(kind collective.Kind, peer *Peer, peerID uint64, tag uint64, buf *wire.Buffer) {
	if peer == nil {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}

	nv, sc := wire.UnpackValue(buf, wire.TypeUint32)
	if sc != status.Success {
		d.reply(peerID, tag, status.ErrBadParam, nil)
		return
	}
	count := int(nv.Uint32())

	participants := make([]collective.Participant, 0, count)
	for i := 0; i < count; i++ {
		nsv, nsSc := wire.UnpackValue(buf, wire.TypeString)
		if nsSc != status.Success {
			d.reply(peerID, tag, status.ErrBadParam, nil)
			return
		}
		rv, rSc := wire.UnpackValue(buf, wire.TypeInt32)
		if rSc != status.Success {
			d.reply(peerID, tag, status.ErrBadParam, nil)
			return
		}
		participants = append(participants, collective.Participant{Namespace: nsv.StringOrEmpty(), Rank: rv.Int32()})
	}

	le := collective.LocalEntry{
		PeerID:    fmt.Sprintf("%d", peerID),
		Tag:       tag,
		Namespace: peer.Namespace,
		Rank:      peer.Rank,
	}

	tr, justCompleted := d.Coll.Join(kind, participants, true, le)
	if !justCompleted {
		return
	}
	d.fireTracker(kind, tr, participants)
}

// fireTracker invokes the host collective callback once a tracker has
// reached def_complete, then fans its single reply out to every local
// participant before removing it from the active list.
func (d *Dispatcher) fireTracker(kind collective.Kind, tr *collective.Tracker, participants []collective.Participant) {
	result, sc := d.Host.FenceNb(kind, participants, nil)

	if d.Metrics != nil && !tr.Started.IsZero() {
		d.Metrics.ObserveFenceLatency(kind.String(), now().Sub(tr.Started).Seconds())
	}

	out := wire.New(wire.FullyDesc)
	wire.PackValue(out, wire.NewByteObject(result))
	payload := out.Bytes()

	for _, local := range tr.Locals() {
		var id uint64
		_, _ = fmt.Sscanf(local.PeerID, "%d", &id)
		d.reply(id, local.Tag, sc, payload)
	}

	d.Coll.Remove(tr)
}

// HandlePeerDisconnect removes a peer that dropped its connection from both
// the attached-peer table and any collective tracker it was expected on or
// had already joined; a tracker that newly reaches def_complete as a result
// still fires, per the peer-disconnect-during-collective property.
func (d *Dispatcher) HandlePeerDisconnect(peerID uint64) {
	peer, ok := d.peers[peerID]
	if !ok {
		return
	}
	d.Detach(peerID)

	p := collective.Participant{Namespace: peer.Namespace, Rank: peer.Rank}
	for _, tr := range d.Coll.Disconnect(p) {
		participants := make([]collective.Participant, 0, len(tr.Locals()))
		for _, local := range tr.Locals() {
			participants = append(participants, collective.Participant{Namespace: local.Namespace, Rank: local.Rank})
		}
		d.fireTracker(tr.Kind, tr, participants)
	}
}
