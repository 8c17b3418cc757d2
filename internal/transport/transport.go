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

// Package transport is the rendezvous-path Unix-domain listener: accept,
// peer credential extraction and the per-connection handler loop. Context is
// deliberately narrowed to what a handler needs (Read/Write/Close over the
// accepted connection) rather than exposing net.Conn wholesale, the same
// handler-callback shape a generic socket server would expose, narrowed here
// to the PMIx rendezvous path.
package transport

import (
	"context"
	"io"
	"net"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Context is the narrowed connection handle passed to a Handler.
type Context interface {
	io.ReadWriteCloser
	Credentials() Credentials
}

// HandlerFunc processes one accepted connection for its entire lifetime; it
// owns the connection and must Close it before returning.
type HandlerFunc func(c Context)

// Config configures a rendezvous listener.
type Config struct {
	// SocketPath is the filesystem path of the Unix-domain socket. Any
	// stale file at this path is removed before binding.
	SocketPath string

	// PermFile is applied to the socket file after binding.
	PermFile os.FileMode

	// GroupPerm chowns the socket's group if >= 0; -1 leaves it unchanged.
	GroupPerm int32
}

// Credentials is the SO_PEERCRED identity of a connecting client, used by
// the handshake to validate the uid/gid a tool or client claims.
type Credentials struct {
	UID uint32
	GID uint32
	PID int32
}

type connContext struct {
	*net.UnixConn
	creds Credentials
}

func (c *connContext) Credentials() Credentials { return c.creds }

// Listener accepts connections on a rendezvous Unix-domain socket and hands
// each one to a Handler on its own goroutine.
type Listener struct {
	cfg     Config
	ln      *net.UnixListener
	handler HandlerFunc
	open    atomic.Int64
	running atomic.Bool
}

// New binds the rendezvous socket. The caller must call Serve to start
// accepting connections.
func New(cfg Config, handler HandlerFunc) (*Listener, error) {
	_ = os.Remove(cfg.SocketPath)

	addr, err := net.ResolveUnixAddr("unix", cfg.SocketPath)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, err
	}

	if cfg.PermFile != 0 {
		if err = os.Chmod(cfg.SocketPath, cfg.PermFile); err != nil {
			_ = ln.Close()
			return nil, err
		}
	}
	if cfg.GroupPerm >= 0 {
		if err = os.Chown(cfg.SocketPath, -1, int(cfg.GroupPerm)); err != nil {
			_ = ln.Close()
			return nil, err
		}
	}

	return &Listener{cfg: cfg, ln: ln, handler: handler}, nil
}

// Serve accepts connections until ctx is canceled or the listener is
// closed. Each accepted connection runs the handler on its own goroutine.
func (l *Listener) Serve(ctx context.Context) error {
	l.running.Store(true)
	defer l.running.Store(false)

	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	for {
		conn, err := l.ln.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		creds, err := PeerCredentials(conn)
		if err != nil {
			_ = conn.Close()
			continue
		}

		l.open.Add(1)
		go func() {
			defer l.open.Add(-1)
			l.handler(&connContext{UnixConn: conn, creds: creds})
		}()
	}
}

// Close stops accepting new connections and removes the socket file.
func (l *Listener) Close() error {
	err := l.ln.Close()
	_ = os.Remove(l.cfg.SocketPath)
	return err
}

// IsRunning reports whether Serve is currently accepting connections.
func (l *Listener) IsRunning() bool {
	return l.running.Load()
}

// IsGone reports the inverse of IsRunning, for the pre-Serve / post-shutdown
// state.
func (l *Listener) IsGone() bool {
	return !l.IsRunning()
}

// OpenConnections returns the number of currently accepted, unclosed peer
// connections.
func (l *Listener) OpenConnections() int64 {
	return l.open.Load()
}

// PeerCredentials reads the SO_PEERCRED/LOCAL_PEERCRED identity of a
// connected Unix-domain socket.
func PeerCredentials(conn *net.UnixConn) (Credentials, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return Credentials{}, err
	}

	var cred *unix.Ucred
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		cred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return Credentials{}, err
	}
	if sockErr != nil {
		return Credentials{}, sockErr
	}

	return Credentials{UID: cred.Uid, GID: cred.Gid, PID: cred.Pid}, nil
}
