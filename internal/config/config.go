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

// Package config binds ServerConfig and ClientConfig onto cobra flags and a
// viper-backed file, using the same two-phase RegisterFlag/Init lifecycle
// as this tree's other components, scoped down to just what the rendezvous
// engine itself needs rather than the full component registry.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sabouaram/pmix/duration"
	loglvl "github.com/sabouaram/pmix/logger/level"
)

// rendezvousDir resolves the directory a Unix-domain rendezvous socket is
// created in, following the same TMPDIR/TEMP/TMP/tmp fallback chain a PMIx
// client uses to locate it.
func rendezvousDir() string {
	for _, env := range []string{"TMPDIR", "TEMP", "TMP"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return "/tmp"
}

// ServerConfig is the daemon-side configuration: where to rendezvous,
// how defensive to be against a misbehaving peer, and how to log.
type ServerConfig struct {
	// SocketPath is the rendezvous Unix-domain socket path. DefaultServerConfig
	// sets it to <rendezvousDir>/pmix-<pid>.sock.
	SocketPath string `json:"socket_path" yaml:"socket_path"`

	// IdleTimeout closes a connection that completes no frame within this
	// window; zero disables the timeout.
	IdleTimeout duration.Duration `json:"idle_timeout" yaml:"idle_timeout"`

	// MaxPayloadBytes bounds a single frame's NBytes field, rejecting the
	// connection outright if exceeded (handshake anti-exhaustion bound).
	MaxPayloadBytes uint64 `json:"max_payload_bytes" yaml:"max_payload_bytes"`

	// SendQueueDepth caps the progress loop's cross-goroutine submission
	// channel (internal/server/progress), the backpressure policy bound.
	SendQueueDepth int `json:"send_queue_depth" yaml:"send_queue_depth"`

	// MetricsAddr, if non-empty, serves the Prometheus registry's handler on
	// this address (e.g. ":9100").
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"`

	// LogLevel is the minimum level internal/logging emits at.
	LogLevel string `json:"log_level" yaml:"log_level"`

	// GroupPerm, if non-empty, chgrp's the rendezvous socket to this group
	// name after creation, alongside its default 0700 permissions.
	GroupPerm string `json:"group_perm" yaml:"group_perm"`
}

// DefaultServerConfig returns the conservative defaults a fresh daemon
// starts with before flags or a config file are applied.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		SocketPath:      filepath.Join(rendezvousDir(), fmt.Sprintf("pmix-%d.sock", os.Getpid())),
		IdleTimeout:     duration.Duration(0),
		MaxPayloadBytes: 16 << 20,
		SendQueueDepth:  256,
		LogLevel:        loglvl.InfoLevel.String(),
	}
}

// RegisterFlag binds cmd's flags to v, following the same
// flag-then-viper-default pattern this tree's other Component
// implementations use.
func (c *ServerConfig) RegisterFlag(cmd *spfcbr.Command, v *spfvpr.Viper) error {
	cmd.Flags().String("socket", c.SocketPath, "rendezvous socket path")
	cmd.Flags().Duration("idle-timeout", c.IdleTimeout.Time(), "close an idle connection after this long (0 disables)")
	cmd.Flags().Uint64("max-payload", c.MaxPayloadBytes, "reject a frame whose payload exceeds this many bytes")
	cmd.Flags().Int("send-queue-depth", c.SendQueueDepth, "progress loop submission queue depth")
	cmd.Flags().String("metrics-addr", c.MetricsAddr, "address to serve Prometheus metrics on, empty disables")
	cmd.Flags().String("log-level", c.LogLevel, "minimum log level (debug, info, warning, error)")
	cmd.Flags().String("group-perm", c.GroupPerm, "group name allowed to connect to the rendezvous socket")

	for _, name := range []string{"socket", "idle-timeout", "max-payload", "send-queue-depth", "metrics-addr", "log-level", "group-perm"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// LoadFromViper overwrites c's fields with whatever v currently holds,
// called once after cobra has parsed flags and viper has merged in any
// config file.
func (c *ServerConfig) LoadFromViper(v *spfvpr.Viper) {
	if s := v.GetString("socket"); s != "" {
		c.SocketPath = s
	}
	c.IdleTimeout = duration.Duration(v.GetDuration("idle-timeout"))
	if n := v.GetUint64("max-payload"); n > 0 {
		c.MaxPayloadBytes = n
	}
	if n := v.GetInt("send-queue-depth"); n > 0 {
		c.SendQueueDepth = n
	}
	c.MetricsAddr = v.GetString("metrics-addr")
	if lvl := v.GetString("log-level"); lvl != "" {
		c.LogLevel = lvl
	}
	c.GroupPerm = v.GetString("group-perm")
}

// DefaultConfig renders c as indented YAML, mirroring the Component.
// DefaultConfig convention of handing back a byte-serialized default
// config a user can drop into a file and edit.
func (c ServerConfig) DefaultConfig() ([]byte, error) {
	return yaml.Marshal(c)
}

// LoadServerConfigFile reads a YAML config file and returns
// DefaultServerConfig overlaid with its contents.
func LoadServerConfigFile(path string) (ServerConfig, error) {
	c := DefaultServerConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err = yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

// WatchFile watches path for changes and invokes onChange with the
// reloaded config whenever it is rewritten, using the same fsnotify
// mechanism viper's own config-file watch relies on internally.
func WatchFile(path string, onChange func(ServerConfig)) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}

	go func() {
		for event := range w.Events {
			if event.Name != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if cfg, err := LoadServerConfigFile(path); err == nil {
				onChange(cfg)
			}
		}
	}()

	return w, nil
}

// ClientConfig is the process-side configuration used by cmd/pmixctl and
// any embedding client process.
type ClientConfig struct {
	SocketPath string            `json:"socket_path" yaml:"socket_path"`
	Namespace  string            `json:"namespace" yaml:"namespace"`
	Rank       int32             `json:"rank" yaml:"rank"`
	IsTool     bool              `json:"is_tool" yaml:"is_tool"`
	Timeout    duration.Duration `json:"timeout" yaml:"timeout"`
	LogLevel   string            `json:"log_level" yaml:"log_level"`
}

// DefaultClientConfig returns a tool-mode client config pointed at the
// conventional rendezvous directory; the daemon resolves the actual
// namespace/rank for a tool connection.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		SocketPath: filepath.Join(rendezvousDir(), fmt.Sprintf("pmix-%d.sock", os.Getppid())),
		IsTool:     true,
		Timeout:    duration.Duration(0),
		LogLevel:   loglvl.InfoLevel.String(),
	}
}

// RegisterFlag binds the diagnostic CLI's flags, matching the `-n`,
// `--timeout`, `-v` flag names used across the PMIx client tool family.
func (c *ClientConfig) RegisterFlag(cmd *spfcbr.Command, v *spfvpr.Viper) error {
	cmd.Flags().StringP("namespace", "n", c.Namespace, "target namespace")
	cmd.Flags().Int32("rank", c.Rank, "target rank")
	cmd.Flags().Duration("timeout", c.Timeout.Time(), "operation timeout (0 waits indefinitely)")
	cmd.Flags().CountP("verbose", "v", "increase log verbosity")
	cmd.Flags().String("socket", c.SocketPath, "rendezvous socket path")

	for _, name := range []string{"namespace", "rank", "timeout", "socket"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// LoadFromViper overwrites c's fields from v, called after cobra parses
// the diagnostic CLI's flags.
func (c *ClientConfig) LoadFromViper(v *spfvpr.Viper) {
	if s := v.GetString("socket"); s != "" {
		c.SocketPath = s
	}
	if ns := v.GetString("namespace"); ns != "" {
		c.Namespace = ns
		c.IsTool = false
	}
	if r := v.GetInt32("rank"); r != 0 {
		c.Rank = r
	}
	c.Timeout = duration.Duration(v.GetDuration("timeout"))
}
