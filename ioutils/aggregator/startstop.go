/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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
 */

package aggregator

import (
	"fmt"
	"os"
	"sync"
	"time"

	"context"
)

// recoverCaller logs a recovered panic to stderr, tagged with the caller name.
func recoverCaller(caller string, r any) {
	if r == nil {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "recovering panic in %s: %v\n", caller, r)
}

// StartStop is the lifecycle contract for the aggregator's background runner:
// a single function run in its own goroutine, restartable, with its last
// errors kept for inspection.
type StartStop interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning() bool
	Uptime() time.Duration
	ErrorsLast() error
	ErrorsList() []error
}

// ssRunner runs a single blocking function in a goroutine, tracking its
// running state, start time and recent errors.
type ssRunner struct {
	runFn   func(context.Context) error
	closeFn func(context.Context) error

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	started time.Time

	errMu sync.Mutex
	last  error
	errs  []error
}

func newStartStop(runFn func(context.Context) error, closeFn func(context.Context) error) *ssRunner {
	return &ssRunner{runFn: runFn, closeFn: closeFn}
}

func (r *ssRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrStillRunning
	}
	if ctx == nil {
		ctx = context.Background()
	}

	runCtx, cancel := context.WithCancel(ctx)
	sig := make(chan error, 1)
	done := make(chan struct{})

	r.cancel = cancel
	r.done = done
	r.running = true
	r.started = time.Now()
	r.mu.Unlock()

	go func() {
		defer close(done)

		err := r.runFn(context.WithValue(runCtx, ckStartSignal, sig))

		r.mu.Lock()
		r.running = false
		r.mu.Unlock()

		if err != nil {
			r.addErr(err)
		}
		if r.closeFn != nil {
			_ = r.closeFn(context.Background())
		}
	}()

	select {
	case err := <-sig:
		return err
	case <-done:
		return nil
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

func (r *ssRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	if done == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *ssRunner) Restart(ctx context.Context) error {
	if err := r.Stop(ctx); err != nil {
		return err
	}
	return r.Start(ctx)
}

func (r *ssRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *ssRunner) Uptime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return 0
	}
	return time.Since(r.started)
}

func (r *ssRunner) addErr(err error) {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	r.last = err
	r.errs = append(r.errs, err)
	if len(r.errs) > 50 {
		r.errs = r.errs[len(r.errs)-50:]
	}
}

func (r *ssRunner) ErrorsLast() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.last
}

func (r *ssRunner) ErrorsList() []error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

// semaphore bounds the number of concurrent async callback invocations.
// A nil channel means unlimited concurrency.
type semaphore struct {
	ch chan struct{}
	wg sync.WaitGroup
}

func newSemaphore(max int) *semaphore {
	s := &semaphore{}
	if max > 0 {
		s.ch = make(chan struct{}, max)
	}
	return s
}

// NewWorkerTry attempts to reserve a slot without blocking.
func (s *semaphore) NewWorkerTry() bool {
	if s.ch == nil {
		s.wg.Add(1)
		return true
	}

	select {
	case s.ch <- struct{}{}:
		s.wg.Add(1)
		return true
	default:
		return false
	}
}

// DeferWorker releases a slot reserved by NewWorkerTry.
func (s *semaphore) DeferWorker() {
	if s.ch != nil {
		select {
		case <-s.ch:
		default:
		}
	}
	s.wg.Done()
}

// DeferMain waits for every outstanding worker to release its slot.
func (s *semaphore) DeferMain() {
	s.wg.Wait()
}
