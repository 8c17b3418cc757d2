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

// Package progress is the single goroutine that owns every piece of mutable
// server state (kvstore, registry, collective trackers, publish/lookup
// directory) and the dispatcher built over them. Every socket read, timer
// tick and cross-goroutine submission is executed from this one goroutine,
// mirroring the single event-base thread the core assumes: no core data
// structure is ever touched from outside it. Application-level callers that
// need to run work on the loop use Submit, which blocks until the work has
// actually executed, the Go equivalent of the activation-fd-plus-condvar
// hookup used to cross from a client API call onto the progress thread.
package progress

import (
	"context"
	"sync"
	"time"
)

// job is one unit of work queued onto the loop; done is closed once fn has
// returned, letting Submit's caller block until the loop actually ran it.
type job struct {
	fn   func()
	done chan struct{}
}

// Loop serializes all work belonging to one server instance onto a single
// goroutine. Tickers registered with AddTicker also fire their callbacks
// from that same goroutine, so a ticker callback may freely touch the same
// state a dispatched command touches.
type Loop struct {
	submissions chan job
	tickers     []ticker

	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

type ticker struct {
	interval time.Duration
	fn       func()
}

// New builds a Loop with a bounded submission queue; a queue depth of 0
// makes every Submit synchronous with the loop picking it up.
func New(queueDepth int) *Loop {
	return &Loop{submissions: make(chan job, queueDepth)}
}

// AddTicker registers a callback to run on the loop goroutine every
// interval, starting once Run begins. Must be called before Run.
func (l *Loop) AddTicker(interval time.Duration, fn func()) {
	l.tickers = append(l.tickers, ticker{interval: interval, fn: fn})
}

// Submit enqueues fn to run on the loop goroutine and blocks until it has
// run to completion. Safe to call concurrently from many goroutines; calls
// are served in submission order relative to each other, interleaved with
// whatever else the loop is doing (accepted connections, ticker fires).
func (l *Loop) Submit(fn func()) {
	j := job{fn: fn, done: make(chan struct{})}
	l.submissions <- j
	<-j.done
}

// TrySubmit is Submit's non-blocking-enqueue variant: it returns false
// immediately if the submission queue is full rather than waiting for room,
// for callers on a path that must never stall (e.g. a socket's read event
// handing off an already-decoded message).
func (l *Loop) TrySubmit(fn func()) bool {
	j := job{fn: fn, done: make(chan struct{})}
	select {
	case l.submissions <- j:
		<-j.done
		return true
	default:
		return false
	}
}

// Run drives the loop until ctx is canceled. It owns every timer; callers
// must not invoke AddTicker concurrently with Run.
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	timers := make([]*time.Ticker, len(l.tickers))
	for i, t := range l.tickers {
		timers[i] = time.NewTicker(t.interval)
		defer timers[i].Stop()
	}

	for {
		select {
		case <-ctx.Done():
			l.drain()
			return
		case j := <-l.submissions:
			j.fn()
			close(j.done)
		default:
		}

		fired := false
		for i, tk := range timers {
			select {
			case <-tk.C:
				l.tickers[i].fn()
				fired = true
			default:
			}
		}

		if !fired {
			select {
			case <-ctx.Done():
				l.drain()
				return
			case j := <-l.submissions:
				j.fn()
				close(j.done)
			case <-time.After(time.Millisecond):
			}
		}
	}
}

// drain runs every submission still queued at shutdown so Submit callers
// waiting on them are not left blocked forever.
func (l *Loop) drain() {
	for {
		select {
		case j := <-l.submissions:
			j.fn()
			close(j.done)
		default:
			return
		}
	}
}

// IsRunning reports whether Run is currently driving the loop.
func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
