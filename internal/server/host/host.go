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

// Package host is the standalone workload-manager stand-in cmd/pmixd binds
// the server to when no external launcher is embedding it: it logs
// Abort/Finalize, hands fence data back unchanged without a job-launch
// system behind it, and serves SpawnNb by replying with a synthetic child
// namespace name rather than actually forking a process (inter-node job
// launch is node-external and out of scope here).
package host

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sabouaram/pmix/internal/server/collective"
	"github.com/sabouaram/pmix/internal/server/registry"
	"github.com/sabouaram/pmix/logger"
	"github.com/sabouaram/pmix/pkg/status"
	"github.com/sabouaram/pmix/pkg/wire"
)

// Standalone is the default Host used when pmixd runs without an embedding
// workload manager.
type Standalone struct {
	log logger.Logger

	spawnSeq atomic.Uint32
}

// New builds a Standalone host that logs through log (nil disables
// logging).
func New(log logger.Logger) *Standalone {
	return &Standalone{log: log}
}

func (h *Standalone) logInfo(message string) {
	if h.log != nil {
		h.log.Info(message, nil)
	}
}

// Abort logs the abort reason; a standalone daemon has no process group to
// signal, so this is purely observational.
func (h *Standalone) Abort(ns string, rank int32, reason string) status.Code {
	h.logInfo(fmt.Sprintf("abort requested by %s/%d: %s", ns, rank, reason))
	return status.Success
}

// Finalize logs a normal client departure.
func (h *Standalone) Finalize(ns string, rank int32) {
	h.logInfo(fmt.Sprintf("%s/%d finalized", ns, rank))
}

// FenceNb returns data unchanged, the degenerate aggregation a standalone
// daemon performs in place of whatever job-launch-specific collective logic
// an embedding host would supply.
func (h *Standalone) FenceNb(kind collective.Kind, participants []collective.Participant, data []byte) ([]byte, status.Code) {
	return data, status.Success
}

// SpawnNb replies with a synthetic child namespace name "<ns>.spawn<N>",
// N counting up from 0 per Standalone, rather than forking a real process
// tree, so Spawn round-trips end to end even without an embedding launcher.
// The name is not registered in any registry.
func (h *Standalone) SpawnNb(ns string, apps []byte, reply func(string, status.Code)) {
	seq := h.spawnSeq.Add(1) - 1
	reply(fmt.Sprintf("%s.spawn%d", ns, seq), status.Success)
}

// GetNb has nothing to resolve: a standalone daemon keeps no job-launch
// database beyond the registry the dispatcher already checked, so any key
// that reaches here was never going to be found locally or remotely.
func (h *Standalone) GetNb(ns string, rank int32, key string, reply func(wire.Value, status.Code)) {
	reply(wire.Value{}, status.ErrNotFound)
}

// AllocateToolNamespace mints a fresh namespace string for every tool
// connection, since a standalone daemon has no job-launch record to derive
// one from.
func (h *Standalone) AllocateToolNamespace(reg *registry.Registry, uid, gid uint32) (string, int32, status.Code) {
	ns := fmt.Sprintf("tool.%s", uuid.NewString())

	if sc := reg.RegisterNamespace(ns, 1, nil); sc != status.Success {
		return "", 0, sc
	}
	return ns, 0, status.Success
}
