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

// Package client is the process-side PMIx API: it dials the rendezvous
// socket, speaks the handshake, and exposes Put/Commit/Get/Fence/Publish/
// Lookup/Unpublish/Spawn/Connect/Disconnect/Abort/Finalize as synchronous
// calls over the same tag-addressed frames the dispatcher understands. A
// background reader goroutine demultiplexes replies onto the call that is
// waiting for each tag, since replies to a Fence/Connect/Disconnect can
// arrive well after later requests were sent on the same connection.
package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sabouaram/pmix/internal/server/dispatch"
	"github.com/sabouaram/pmix/internal/server/pubsub"
	"github.com/sabouaram/pmix/internal/transport"
	"github.com/sabouaram/pmix/pkg/status"
	"github.com/sabouaram/pmix/pkg/wire"
)

// Config configures a client connection.
type Config struct {
	SocketPath string
	Namespace  string
	Rank       int32

	// IsTool marks a tool connection requesting host-assigned namespace
	// allocation instead of presenting an already-registered rank.
	IsTool bool

	// Credential is presented to the server's credential validator hook, if
	// one is configured; nil if the server requires none.
	Credential []byte
}

type pendingReply struct {
	payload []byte
	err     error
}

// Client is one connected PMIx process's handle on the rendezvous socket.
type Client struct {
	conn      net.Conn
	namespace string
	rank      int32
	peerIndex uint32
	jobInfo   map[string]wire.Value

	nextTag atomic.Uint32

	mu      sync.Mutex
	pending map[uint32]chan pendingReply
	closed  chan struct{}
	closeMu sync.Mutex
	closeOk bool

	putMu       sync.Mutex
	pendingPuts map[string]wire.Value
}

// Dial connects to the rendezvous socket at cfg.SocketPath and completes the
// handshake, returning a Client ready for Put/Get/Fence/etc.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", cfg.SocketPath)
	if err != nil {
		return nil, err
	}

	hello := transport.EncodeClientHello(transport.ClientHello{
		Version:    transport.ProtocolVersion,
		IsTool:     cfg.IsTool,
		Namespace:  cfg.Namespace,
		Rank:       cfg.Rank,
		Credential: cfg.Credential,
	})
	if err = transport.WriteFrame(conn, wire.Header{Tag: 0}, hello); err != nil {
		_ = conn.Close()
		return nil, err
	}

	_, payload, err := transport.ReadFrame(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	sh, sc := transport.DecodeServerHello(payload)
	if sc != status.Success {
		_ = conn.Close()
		return nil, fmt.Errorf("pmix: malformed server hello: %s", sc)
	}
	if sh.Status != status.Success {
		_ = conn.Close()
		return nil, sh.Status.AsError()
	}

	c := &Client{
		conn:      conn,
		namespace: cfg.Namespace,
		rank:      cfg.Rank,
		peerIndex: sh.PeerIndex,
		jobInfo:   decodeJobInfo(sh.JobInfoBlob),
		pending:   make(map[uint32]chan pendingReply),
		closed:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func decodeJobInfo(blob []byte) map[string]wire.Value {
	out := make(map[string]wire.Value)
	if len(blob) == 0 {
		return out
	}
	buf := wire.NewFromBytes(wire.FullyDesc, blob)
	for buf.Remaining() > 0 {
		key, v, sc := wire.UnpackKV(buf)
		if sc != status.Success {
			break
		}
		out[key] = v
	}
	return out
}

// Namespace returns the namespace this client registered under.
func (c *Client) Namespace() string { return c.namespace }

// Rank returns the rank this client registered under.
func (c *Client) Rank() int32 { return c.rank }

// PeerIndex returns the array-index the server assigned this connection at
// handshake time.
func (c *Client) PeerIndex() uint32 { return c.peerIndex }

// JobInfo looks up a key from the job-info blob replayed at handshake time.
func (c *Client) JobInfo(key string) (wire.Value, bool) {
	v, ok := c.jobInfo[key]
	return v, ok
}

// Close releases the underlying connection, failing any calls still
// in-flight.
func (c *Client) Close() error {
	c.closeMu.Lock()
	if c.closeOk {
		c.closeMu.Unlock()
		return nil
	}
	c.closeOk = true
	c.closeMu.Unlock()

	close(c.closed)
	return c.conn.Close()
}

func (c *Client) readLoop() {
	defer c.failAllPending(fmt.Errorf("pmix: connection closed"))
	for {
		hdr, payload, err := transport.ReadFrame(c.conn)
		if err != nil {
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[hdr.Tag]
		if ok {
			delete(c.pending, hdr.Tag)
		}
		c.mu.Unlock()
		if ok {
			ch <- pendingReply{payload: payload}
		}
	}
}

func (c *Client) failAllPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for tag, ch := range c.pending {
		ch <- pendingReply{err: err}
		delete(c.pending, tag)
	}
}

// call sends a request frame and blocks until its reply arrives, ctx is
// canceled, or the connection closes.
func (c *Client) call(ctx context.Context, payload []byte) ([]byte, error) {
	tag := c.nextTag.Add(1)
	ch := make(chan pendingReply, 1)

	c.mu.Lock()
	c.pending[tag] = ch
	c.mu.Unlock()

	if err := transport.WriteFrame(c.conn, wire.Header{Tag: tag}, payload); err != nil {
		c.mu.Lock()
		delete(c.pending, tag)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case r := <-ch:
		return r.payload, r.err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, tag)
		c.mu.Unlock()
		return nil, ctx.Err()
	case <-c.closed:
		return nil, fmt.Errorf("pmix: client closed")
	}
}

func unpackStatus(payload []byte) (*wire.Buffer, status.Code, status.Code) {
	buf := wire.NewFromBytes(wire.FullyDesc, payload)
	sv, sc := wire.UnpackValue(buf, wire.TypeInt32)
	if sc != status.Success {
		return buf, status.Code(0), sc
	}
	return buf, status.Code(sv.Int32()), status.Success
}

// Put buffers a (key, value) pair to be sent to the server on the next
// Commit; it never itself touches the network.
func (c *Client) Put(key string, v wire.Value) {
	c.putMu.Lock()
	defer c.putMu.Unlock()
	if c.pendingPuts == nil {
		c.pendingPuts = make(map[string]wire.Value)
	}
	c.pendingPuts[key] = v
}

// Commit flushes every key buffered by Put to the server in one request.
func (c *Client) Commit(ctx context.Context) (status.Code, error) {
	c.putMu.Lock()
	puts := c.pendingPuts
	c.pendingPuts = nil
	c.putMu.Unlock()

	buf := wire.New(wire.FullyDesc)
	wire.PackValue(buf, wire.NewUint32(uint32(dispatch.OpCommit)))
	wire.PackValue(buf, wire.NewUint32(uint32(len(puts))))
	for k, v := range puts {
		wire.PackKV(buf, k, v)
	}

	payload, err := c.call(ctx, buf.Bytes())
	if err != nil {
		return 0, err
	}
	_, sc, unpackSC := unpackStatus(payload)
	if unpackSC != status.Success {
		return 0, fmt.Errorf("pmix: malformed commit reply: %s", unpackSC)
	}
	return sc, nil
}

// Get resolves a (namespace, rank, key) value, parking on the server side
// until a matching Commit arrives if it is not yet available.
func (c *Client) Get(ctx context.Context, namespace string, rank int32, key string) (wire.Value, status.Code, error) {
	buf := wire.New(wire.FullyDesc)
	wire.PackValue(buf, wire.NewUint32(uint32(dispatch.OpGetNb)))
	wire.PackValue(buf, wire.NewStringV(namespace))
	wire.PackValue(buf, wire.NewInt32(rank))
	wire.PackValue(buf, wire.NewStringV(key))

	payload, err := c.call(ctx, buf.Bytes())
	if err != nil {
		return wire.Value{}, 0, err
	}
	rb, sc, unpackSC := unpackStatus(payload)
	if unpackSC != status.Success {
		return wire.Value{}, 0, fmt.Errorf("pmix: malformed get reply: %s", unpackSC)
	}
	if sc != status.Success {
		return wire.Value{}, sc, nil
	}
	v, vSc := wire.UnpackValueAny(rb)
	if vSc != status.Success {
		return wire.Value{}, 0, fmt.Errorf("pmix: malformed get value: %s", vSc)
	}
	return v, status.Success, nil
}

// Participant identifies one (namespace, rank) expected in a collective.
type Participant struct {
	Namespace string
	Rank      int32
}

func (c *Client) collective(ctx context.Context, opcode dispatch.Opcode, participants []Participant) ([]byte, status.Code, error) {
	buf := wire.New(wire.FullyDesc)
	wire.PackValue(buf, wire.NewUint32(uint32(opcode)))
	wire.PackValue(buf, wire.NewUint32(uint32(len(participants))))
	for _, p := range participants {
		wire.PackValue(buf, wire.NewStringV(p.Namespace))
		wire.PackValue(buf, wire.NewInt32(p.Rank))
	}

	payload, err := c.call(ctx, buf.Bytes())
	if err != nil {
		return nil, 0, err
	}
	rb, sc, unpackSC := unpackStatus(payload)
	if unpackSC != status.Success {
		return nil, 0, fmt.Errorf("pmix: malformed collective reply: %s", unpackSC)
	}
	if sc != status.Success {
		return nil, sc, nil
	}
	bv, bSc := wire.UnpackValue(rb, wire.TypeByteObject)
	if bSc != status.Success {
		return nil, 0, fmt.Errorf("pmix: malformed collective payload: %s", bSc)
	}
	return bv.ByteObject(), status.Success, nil
}

// Fence blocks until every participant has called Fence with the same
// participant set, returning whatever collected data the host attaches.
func (c *Client) Fence(ctx context.Context, participants []Participant) ([]byte, status.Code, error) {
	return c.collective(ctx, dispatch.OpFenceNb, participants)
}

// Connect is the collective rendezvous a set of peers uses to join into a
// shared communicator.
func (c *Client) Connect(ctx context.Context, participants []Participant) (status.Code, error) {
	_, sc, err := c.collective(ctx, dispatch.OpConnect, participants)
	return sc, err
}

// Disconnect is Connect's counterpart, releasing a shared communicator.
func (c *Client) Disconnect(ctx context.Context, participants []Participant) (status.Code, error) {
	_, sc, err := c.collective(ctx, dispatch.OpDisconnect, participants)
	return sc, err
}

// Publish stores kvs in the server's publish/lookup directory under the
// given persistence.
func (c *Client) Publish(ctx context.Context, persistence pubsub.Persistence, kvs []pubsub.KV) (status.Code, error) {
	buf := wire.New(wire.FullyDesc)
	wire.PackValue(buf, wire.NewUint32(uint32(dispatch.OpPublishNb)))
	wire.PackValue(buf, wire.NewStringV(string(persistence)))
	wire.PackValue(buf, wire.NewUint32(uint32(len(kvs))))
	for _, kv := range kvs {
		wire.PackKV(buf, kv.Key, kv.Value)
	}

	payload, err := c.call(ctx, buf.Bytes())
	if err != nil {
		return 0, err
	}
	_, sc, unpackSC := unpackStatus(payload)
	if unpackSC != status.Success {
		return 0, fmt.Errorf("pmix: malformed publish reply: %s", unpackSC)
	}
	return sc, nil
}

// Lookup resolves keys published at the given persistence, parking on the
// server side until wait-timeout if wait is true and they are not yet all
// available.
func (c *Client) Lookup(ctx context.Context, persistence pubsub.Persistence, wait bool, timeout time.Duration, keys []string) (map[string]wire.Value, status.Code, error) {
	buf := wire.New(wire.FullyDesc)
	wire.PackValue(buf, wire.NewUint32(uint32(dispatch.OpLookupNb)))
	wire.PackValue(buf, wire.NewStringV(string(persistence)))
	wire.PackValue(buf, wire.NewBool(wait))
	wire.PackValue(buf, wire.NewInt64(timeout.Milliseconds()))
	wire.PackValue(buf, wire.NewUint32(uint32(len(keys))))
	for _, k := range keys {
		wire.PackValue(buf, wire.NewStringV(k))
	}

	callCtx := ctx
	if wait && timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout+time.Second)
		defer cancel()
	}

	payload, err := c.call(callCtx, buf.Bytes())
	if err != nil {
		return nil, 0, err
	}
	rb, sc, unpackSC := unpackStatus(payload)
	if unpackSC != status.Success {
		return nil, 0, fmt.Errorf("pmix: malformed lookup reply: %s", unpackSC)
	}
	if sc != status.Success {
		return nil, sc, nil
	}

	nv, nSc := wire.UnpackValue(rb, wire.TypeUint32)
	if nSc != status.Success {
		return nil, 0, fmt.Errorf("pmix: malformed lookup count: %s", nSc)
	}
	count := int(nv.Uint32())
	found := make(map[string]wire.Value, count)
	for i := 0; i < count; i++ {
		k, v, kvSc := wire.UnpackKV(rb)
		if kvSc != status.Success {
			return nil, 0, fmt.Errorf("pmix: malformed lookup entry: %s", kvSc)
		}
		found[k] = v
	}
	return found, status.Success, nil
}

// Unpublish removes keys from the publish/lookup directory at the given
// persistence; a nil keys purges every key at that persistence.
func (c *Client) Unpublish(ctx context.Context, persistence pubsub.Persistence, keys []string) (status.Code, error) {
	buf := wire.New(wire.FullyDesc)
	wire.PackValue(buf, wire.NewUint32(uint32(dispatch.OpUnpublishNb)))
	wire.PackValue(buf, wire.NewStringV(string(persistence)))
	wire.PackValue(buf, wire.NewUint32(uint32(len(keys))))
	for _, k := range keys {
		wire.PackValue(buf, wire.NewStringV(k))
	}

	payload, err := c.call(ctx, buf.Bytes())
	if err != nil {
		return 0, err
	}
	_, sc, unpackSC := unpackStatus(payload)
	if unpackSC != status.Success {
		return 0, fmt.Errorf("pmix: malformed unpublish reply: %s", unpackSC)
	}
	return sc, nil
}

// Spawn requests the host launch a new set of processes described by apps,
// returning the newly spawned namespace on success.
func (c *Client) Spawn(ctx context.Context, apps []byte) (string, status.Code, error) {
	buf := wire.New(wire.FullyDesc)
	wire.PackValue(buf, wire.NewUint32(uint32(dispatch.OpSpawnNb)))
	wire.PackValue(buf, wire.NewByteObject(apps))

	payload, err := c.call(ctx, buf.Bytes())
	if err != nil {
		return "", 0, err
	}
	rb, sc, unpackSC := unpackStatus(payload)
	if unpackSC != status.Success {
		return "", 0, fmt.Errorf("pmix: malformed spawn reply: %s", unpackSC)
	}
	if sc != status.Success {
		return "", sc, nil
	}
	nv, nSc := wire.UnpackValue(rb, wire.TypeString)
	if nSc != status.Success {
		return "", 0, fmt.Errorf("pmix: malformed spawn namespace: %s", nSc)
	}
	return nv.StringOrEmpty(), status.Success, nil
}

// Abort asks the host to terminate the whole job, with reason surfaced to
// whatever the host logs or reports. A successful abort disables further
// reads on this connection.
func (c *Client) Abort(ctx context.Context, reason string) (status.Code, error) {
	buf := wire.New(wire.FullyDesc)
	wire.PackValue(buf, wire.NewUint32(uint32(dispatch.OpAbort)))
	wire.PackValue(buf, wire.NewStringV(reason))

	payload, err := c.call(ctx, buf.Bytes())
	if err != nil {
		return 0, err
	}
	_, sc, unpackSC := unpackStatus(payload)
	if unpackSC != status.Success {
		return 0, fmt.Errorf("pmix: malformed abort reply: %s", unpackSC)
	}
	return sc, nil
}

// Finalize tells the server this process is shutting down normally.
func (c *Client) Finalize(ctx context.Context) (status.Code, error) {
	buf := wire.New(wire.FullyDesc)
	wire.PackValue(buf, wire.NewUint32(uint32(dispatch.OpFinalize)))

	payload, err := c.call(ctx, buf.Bytes())
	if err != nil {
		return 0, err
	}
	_, sc, unpackSC := unpackStatus(payload)
	if unpackSC != status.Success {
		return 0, fmt.Errorf("pmix: malformed finalize reply: %s", unpackSC)
	}
	return sc, nil
}
