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

//go:build linux

// Package server wires the rendezvous listener, the opcode dispatcher and
// every piece of state it touches (registry, kvstore, collective, pubsub)
// onto one progress loop, and exposes the connection count, collective
// latency and KV size metrics for it.
package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	libatm "github.com/sabouaram/pmix/atomic"
	"github.com/sabouaram/pmix/internal/server/collective"
	"github.com/sabouaram/pmix/internal/server/dispatch"
	"github.com/sabouaram/pmix/internal/server/kvstore"
	"github.com/sabouaram/pmix/internal/server/metrics"
	"github.com/sabouaram/pmix/internal/server/progress"
	"github.com/sabouaram/pmix/internal/server/pubsub"
	"github.com/sabouaram/pmix/internal/server/registry"
	"github.com/sabouaram/pmix/internal/transport"
	"github.com/sabouaram/pmix/logger"
	"github.com/sabouaram/pmix/pkg/status"
	"github.com/sabouaram/pmix/pkg/wire"
)

// Host is the external workload-manager surface a Server delegates
// process-lifecycle and namespace-allocation decisions to; the actual
// launcher/scheduler behind it is out of scope here and is expected to be
// supplied by whatever embeds this package.
type Host interface {
	dispatch.Host

	// AllocateToolNamespace resolves a tool connection's (IsTool, empty
	// Namespace) handshake into a host-assigned namespace and rank,
	// registering it with reg itself (the host owns RegisterNamespace's
	// info array) before returning. A rejection status leaves reg
	// untouched.
	AllocateToolNamespace(reg *registry.Registry, uid, gid uint32) (namespace string, rank int32, sc status.Code)
}

// Config configures a Server.
type Config struct {
	Transport transport.Config
	Metrics   prometheus.Registerer

	// MetricsInterval is how often open-connection and KV-size gauges are
	// refreshed from live state; zero disables the ticker.
	MetricsInterval time.Duration

	// SubmissionQueueDepth sizes the progress loop's cross-goroutine
	// submission channel.
	SubmissionQueueDepth int

	// CredentialValidator, if non-nil, checks the opaque credential bytes a
	// client presents during the handshake against its SO_PEERCRED identity.
	// A nil validator accepts every connection regardless of Credential.
	CredentialValidator func(creds transport.Credentials, credential []byte) status.Code
}

type peerConn struct {
	mu   sync.Mutex
	conn transport.Context
}

func (p *peerConn) writeFrame(h wire.Header, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return transport.WriteFrame(p.conn, h, payload)
}

// Server owns every piece of PMIx server-side state and the listener that
// feeds it.
type Server struct {
	host       Host
	log        logger.Logger
	metrics    *metrics.Server
	credential func(creds transport.Credentials, credential []byte) status.Code

	kv   *kvstore.Store
	reg  *registry.Registry
	coll *collective.Manager
	pub  *pubsub.Directory

	loop       *progress.Loop
	dispatcher *dispatch.Dispatcher
	listener   *transport.Listener

	nextPeerID atomic.Uint64

	// peers maps a live peer ID to its connection wrapper. Accept, the read
	// loop goroutines, and the dispatcher sink touch this concurrently, so
	// it uses the typed sync.Map wrapper from the atomic package rather
	// than a mutex+map pair.
	peers libatm.MapTyped[uint64, *peerConn]
}

// New builds a Server bound to host for process-lifecycle and namespace
// decisions. Run must be called to start serving.
func New(cfg Config, host Host, log logger.Logger) (*Server, error) {
	if cfg.Metrics == nil {
		cfg.Metrics = prometheus.NewRegistry()
	}

	s := &Server{
		host:       host,
		log:        log,
		metrics:    metrics.NewServer(cfg.Metrics),
		credential: cfg.CredentialValidator,
		kv:         kvstore.New(),
		reg:        registry.New(),
		coll:       collective.New(),
		pub:        pubsub.New(),
		loop:       progress.New(cfg.SubmissionQueueDepth),
		peers:      libatm.NewMapTyped[uint64, *peerConn](),
	}

	sink := &dispatcherSink{s: s}
	s.dispatcher = dispatch.New(s.kv, s.reg, s.coll, s.pub, host, sink)
	s.dispatcher.Metrics = s.metrics

	if cfg.MetricsInterval > 0 {
		s.loop.AddTicker(cfg.MetricsInterval, s.refreshGauges)
	}

	ln, err := transport.New(cfg.Transport, s.handleConn)
	if err != nil {
		return nil, err
	}
	s.listener = ln

	return s, nil
}

// Run drives the progress loop and rendezvous listener until ctx is
// canceled, returning once both have stopped.
func (s *Server) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.loop.Run(ctx)
	}()

	err := s.listener.Serve(ctx)
	wg.Wait()
	return err
}

// Close stops accepting new connections and removes the rendezvous socket.
func (s *Server) Close() error {
	return s.listener.Close()
}

// OpenConnections returns the number of currently accepted peer connections.
func (s *Server) OpenConnections() int64 {
	return s.listener.OpenConnections()
}

// IsRunning reports whether the rendezvous listener is currently accepting
// connections.
func (s *Server) IsRunning() bool {
	return s.listener.IsRunning()
}

// RegisterNamespace registers a job's namespace and its job-info entries,
// ready for clients to connect against. It runs on the progress loop, so it
// is safe to call concurrently with an already-running Server.
func (s *Server) RegisterNamespace(name string, numLocalProcs int, info []registry.InfoEntry) status.Code {
	var sc status.Code
	s.loop.Submit(func() {
		sc = s.reg.RegisterNamespace(name, numLocalProcs, info)
	})
	return sc
}

func (s *Server) refreshGauges() {
	s.metrics.SetOpenConnections(s.listener.OpenConnections())
}

// handleConn runs the handshake then the per-connection read loop for one
// accepted socket; it owns conn for its entire lifetime, per
// transport.HandlerFunc's contract.
func (s *Server) handleConn(conn transport.Context) {
	defer func() { _ = conn.Close() }()

	hdr, payload, err := transport.ReadFrame(conn)
	if err != nil {
		return
	}
	hello, sc := transport.DecodeClientHello(payload)
	if sc != status.Success {
		return
	}
	// (a) version major.minor must match; a patch-level difference is fine.
	if !transport.VersionCompatible(hello.Version, transport.ProtocolVersion) {
		s.rejectHandshake(conn, hdr.Tag, status.ErrNotSupported)
		return
	}

	creds := conn.Credentials()

	// (d) credential validator, if configured, runs before namespace/rank are
	// touched so a rejected credential never registers a rank.
	if s.credential != nil {
		if sc := s.credential(creds, hello.Credential); sc != status.Success {
			s.rejectHandshake(conn, hdr.Tag, sc)
			return
		}
	}

	namespace, rank := hello.Namespace, hello.Rank

	// (b)/(c) namespace and rank resolution and registration touch registry
	// state shared with the dispatcher, so it all runs on the progress loop
	// rather than this connection's own accept goroutine.
	var (
		regSC status.Code
		blob  []byte
	)
	s.loop.Submit(func() {
		if hello.IsTool && namespace == "" {
			namespace, rank, regSC = s.host.AllocateToolNamespace(s.reg, creds.UID, creds.GID)
			if regSC != status.Success {
				return
			}
		}
		if _, sc := s.reg.RegisterClient(namespace, rank, creds.UID, creds.GID, conn); sc != status.Success {
			regSC = sc
			return
		}
		regSC = status.Success
		if ns, nsSC := s.reg.Namespace(namespace); nsSC == status.Success {
			blob = ns.JobInfoBlob
		}
	})
	if regSC != status.Success {
		s.rejectHandshake(conn, hdr.Tag, regSC)
		return
	}

	peerID := s.nextPeerID.Add(1)
	pc := &peerConn{conn: conn}
	s.peers.Store(peerID, pc)

	if err = transport.WriteFrame(conn, wire.Header{Tag: hdr.Tag}, transport.EncodeServerHello(transport.ServerHello{
		Status:      status.Success,
		PeerIndex:   uint32(peerID),
		JobInfoBlob: blob,
	})); err != nil {
		s.peers.Delete(peerID)
		return
	}

	s.loop.Submit(func() {
		s.dispatcher.Attach(&dispatch.Peer{ID: peerID, Namespace: namespace, Rank: rank})
	})

	defer func() {
		s.peers.Delete(peerID)

		s.loop.Submit(func() {
			s.dispatcher.HandlePeerDisconnect(peerID)
			_ = s.reg.ReleaseClient(namespace, rank)
		})
	}()

	for {
		fhdr, fpayload, ferr := transport.ReadFrame(conn)
		if ferr != nil {
			return
		}
		tag := uint64(fhdr.Tag)
		s.loop.Submit(func() {
			s.dispatcher.Dispatch(peerID, tag, fpayload)
		})
	}
}

func (s *Server) rejectHandshake(conn transport.Context, tag uint32, sc status.Code) {
	_ = transport.WriteFrame(conn, wire.Header{Tag: tag}, transport.EncodeServerHello(transport.ServerHello{Status: sc}))
}

// dispatcherSink adapts the Server's per-peer connections to dispatch.Sink,
// serializing concurrent writes to the same connection behind peerConn's
// own mutex since a single net.Conn cannot be written from two goroutines
// at once.
type dispatcherSink struct {
	s *Server
}

func (d *dispatcherSink) QueueReply(peerID uint64, tag uint64, payload []byte) {
	pc, ok := d.s.peers.Load(peerID)
	if !ok {
		return
	}

	h := wire.Header{PeerID: peerID, Type: wire.MsgUser, Tag: uint32(tag)}
	if err := pc.writeFrame(h, payload); err != nil && d.s.log != nil {
		d.s.log.Warning(fmt.Sprintf("pmix: write to peer %d failed", peerID), err)
	}
}

func (d *dispatcherSink) DisableRead(peerID uint64) {
	pc, ok := d.s.peers.Load(peerID)
	if !ok {
		return
	}
	_ = pc.conn.Close()
}
