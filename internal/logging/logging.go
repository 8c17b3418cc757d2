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

// Package logging attaches PMIx-specific field helpers (peer, namespace,
// rank, tag, opcode) on top of the structured logger.Logger shared by the
// rest of this tree, attaching fields before logging rather than
// formatting them inline into the message string.
package logging

import (
	"context"
	"fmt"

	"github.com/sabouaram/pmix/logger"
	logcfg "github.com/sabouaram/pmix/logger/config"
	logfld "github.com/sabouaram/pmix/logger/fields"
	loglvl "github.com/sabouaram/pmix/logger/level"
)

// New builds a Logger at InfoLevel bound to ctx, with its console output
// routed through the shared colorable stdout hook, ready for With*
// helpers to attach PMIx fields to.
func New(ctx context.Context) logger.Logger {
	l := logger.New(ctx)
	_ = l.SetOptions(&logcfg.Options{
		Stdout: &logcfg.OptionsStd{},
	})
	return l
}

// WithPeer returns an entry-scoped copy of fields with the peer ID attached.
func WithPeer(f logfld.Fields, peerID uint64) logfld.Fields {
	return f.Clone().Add("peer", peerID)
}

// WithNamespace attaches the namespace field.
func WithNamespace(f logfld.Fields, namespace string) logfld.Fields {
	return f.Clone().Add("namespace", namespace)
}

// WithRank attaches the rank field.
func WithRank(f logfld.Fields, rank int32) logfld.Fields {
	return f.Clone().Add("rank", rank)
}

// WithTag attaches the request tag field.
func WithTag(f logfld.Fields, tag uint64) logfld.Fields {
	return f.Clone().Add("tag", tag)
}

// WithOpcode attaches the opcode field. opcode is typically a
// dispatch.Opcode or collective.Kind; this package sits below both in the
// dependency graph, so it accepts fmt.Stringer rather than importing them.
func WithOpcode(f logfld.Fields, opcode fmt.Stringer) logfld.Fields {
	return f.Clone().Add("opcode", opcode.String())
}

// Fields builds a fresh, empty field set bound to ctx, ready for With*
// helpers to attach onto.
func Fields(ctx context.Context) logfld.Fields {
	return logfld.New(ctx)
}

// Entry logs message at lvl with fields attached, calling Logger.Entry
// rather than formatting fields into the message string.
func Entry(log logger.Logger, lvl loglvl.Level, message string, fields logfld.Fields) {
	if log == nil {
		return
	}
	log.Entry(lvl, message).FieldMerge(fields).Log()
}
