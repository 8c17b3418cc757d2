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

// Package collective matches concurrent fence/connect/disconnect participants
// against a shared tracker keyed by a canonical signature, flips def_complete
// once every expected participant has a local peer attached, and hands back
// the ordered list of peers to reply to once the host collective finishes.
package collective

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind distinguishes the three collective request families; all three share
// the same tracker matching and reply-fanout machinery.
type Kind uint8

const (
	KindFence Kind = iota
	KindConnect
	KindDisconnect
)

func (k Kind) String() string {
	switch k {
	case KindFence:
		return "fence"
	case KindConnect:
		return "connect"
	case KindDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Participant identifies one (namespace, rank) expected to join a tracker.
type Participant struct {
	Namespace string
	Rank      int32
}

// LocalEntry is one local peer attached to a tracker, carrying the reply tag
// that must be echoed back to it once the tracker fires.
type LocalEntry struct {
	PeerID    string
	Tag       uint64
	Namespace string
	Rank      int32
}

// Tracker is in-flight state for one outstanding collective. It is created
// on first participant arrival and removed once its reply has been enqueued
// to every local participant.
type Tracker struct {
	Kind        Kind
	Signature   string
	CollectData bool
	Started     time.Time

	expected map[Participant]bool
	locals   []LocalEntry
	fired    bool
}

// DefComplete reports whether every expected participant currently has a
// local peer attached.
func (t *Tracker) DefComplete() bool {
	return len(t.expected) > 0 && len(t.locals) >= len(t.expected)
}

// Locals returns the ordered list of local participants joined so far, in
// join order; replies must be enqueued to peers in this order.
func (t *Tracker) Locals() []LocalEntry {
	out := make([]LocalEntry, len(t.locals))
	copy(out, t.locals)
	return out
}

// ExpectedCount returns the number of participants still expected.
func (t *Tracker) ExpectedCount() int {
	return len(t.expected)
}

// Signature builds the canonical signature for a collective request: its
// kind plus the sorted (namespace, rank) participant list. Two requests with
// the same kind and participant set always match the same tracker regardless
// of the order participants were listed in.
func Signature(kind Kind, participants []Participant) string {
	sorted := append([]Participant(nil), participants...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Namespace != sorted[j].Namespace {
			return sorted[i].Namespace < sorted[j].Namespace
		}
		return sorted[i].Rank < sorted[j].Rank
	})

	var b strings.Builder
	fmt.Fprintf(&b, "%s:", kind)
	for _, p := range sorted {
		fmt.Fprintf(&b, "%s/%d;", p.Namespace, p.Rank)
	}
	return b.String()
}

// Manager owns the server-wide active-collectives list. Like kvstore, it
// carries no internal locking: all Join/Disconnect/Remove calls are expected
// to run from the single progress goroutine.
type Manager struct {
	trackers map[string]*Tracker
}

func New() *Manager {
	return &Manager{trackers: make(map[string]*Tracker)}
}

// Join attaches a local peer to the tracker matching (kind, participants),
// creating the tracker on first arrival. justCompleted is true exactly once,
// on the call whose append flips def_complete from false to true; callers
// must invoke the host collective only then, and must not invoke it again
// for the same tracker.
func (m *Manager) Join(kind Kind, participants []Participant, collectData bool, le LocalEntry) (tr *Tracker, justCompleted bool) {
	sig := Signature(kind, participants)

	tr, ok := m.trackers[sig]
	if !ok {
		expected := make(map[Participant]bool, len(participants))
		for _, p := range participants {
			expected[p] = true
		}
		tr = &Tracker{
			Kind:        kind,
			Signature:   sig,
			CollectData: collectData,
			Started:     time.Now(),
			expected:    expected,
		}
		m.trackers[sig] = tr
	}

	wasComplete := tr.DefComplete()
	tr.locals = append(tr.locals, le)
	nowComplete := tr.DefComplete()

	if nowComplete && !wasComplete && !tr.fired {
		tr.fired = true
		return tr, true
	}
	return tr, false
}

// Lookup returns the tracker for a signature, if any is currently active.
func (m *Manager) Lookup(sig string) (*Tracker, bool) {
	tr, ok := m.trackers[sig]
	return tr, ok
}

// Remove drops a tracker from the active list once its replies have all
// been enqueued.
func (m *Manager) Remove(tr *Tracker) {
	delete(m.trackers, tr.Signature)
}

// Count returns the number of currently active trackers.
func (m *Manager) Count() int {
	return len(m.trackers)
}

// Disconnect silently drops a participant from every tracker it appears on,
// whether or not it had already joined the locals list, decrementing the
// tracker's expected count so the collective can still fire without it. It
// returns the trackers that newly reached def_complete as a result (callers
// must invoke the host collective for each, exactly once, same as Join).
func (m *Manager) Disconnect(p Participant) []*Tracker {
	var fired []*Tracker

	for _, tr := range m.trackers {
		if tr.fired {
			continue
		}

		wasComplete := tr.DefComplete()

		for i, le := range tr.locals {
			if le.Namespace == p.Namespace && le.Rank == p.Rank {
				tr.locals = append(tr.locals[:i], tr.locals[i+1:]...)
				break
			}
		}
		if tr.expected[p] {
			delete(tr.expected, p)
		}

		nowComplete := tr.DefComplete()
		if nowComplete && !wasComplete {
			tr.fired = true
			fired = append(fired, tr)
		}
	}
	return fired
}
