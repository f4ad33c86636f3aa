// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package promise provides the eventual result of an HTTP exchange.

A Promise is settled exactly once, either fulfilled with a response or
rejected with an error. Continuations registered with Then and OnSettle
run synchronously on the goroutine which settles the promise, in the
order they were registered; a continuation registered after the promise
settled runs immediately on the registering goroutine.

A Promise produced by a transport carries a Driver, the transport's
reactor. Wait drives the reactor until the promise settles, so a caller
can block on a single exchange while every other in-flight exchange
makes progress too:

	p := h.Handle(req, nil)
	resp, err := p.Wait()
*/
package promise

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// A State is the settlement state of a Promise.
type State int

const (
	// StatePending means the promise has not settled.
	StatePending State = iota
	// StateFulfilled means the promise settled with a response.
	StateFulfilled
	// StateRejected means the promise settled with an error.
	StateRejected
)

var stateNames = []string{"pending", "fulfilled", "rejected"}

func (s State) String() string {
	return stateNames[s]
}

// ErrCancelled is the rejection reason of a cancelled promise.
var ErrCancelled = errors.New("httpstack/promise: cancelled")

// A Driver advances the asynchronous work a Promise depends on.
type Driver interface {
	// Tick performs one step of work, waiting at most wait for
	// progress, and reports whether work remains outstanding.
	Tick(wait time.Duration) bool
}

// DefaultTick is the bounded wait Wait passes to a Driver.
const DefaultTick = time.Second

// idlePoll is how long Wait sleeps between polls when the driver
// reports no outstanding work.
const idlePoll = 5 * time.Millisecond

// A Promise is the eventual outcome of an HTTP exchange.
type Promise struct {
	lock     sync.Mutex
	state    State
	resp     *http.Response
	err      error
	done     chan struct{}
	handlers []func(*http.Response, error)
	driver   Driver
	cancel   func()
}

// New returns a pending promise. The driver d, which may be nil, is
// driven by Wait. The cancel function, which may be nil, is invoked by
// Cancel to abort the underlying work.
func New(d Driver, cancel func()) *Promise {
	return &Promise{
		done:   make(chan struct{}),
		driver: d,
		cancel: cancel,
	}
}

// Fulfilled returns a promise already fulfilled with resp.
func Fulfilled(resp *http.Response) *Promise {
	p := New(nil, nil)
	p.Fulfill(resp)
	return p
}

// Rejected returns a promise already rejected with err.
func Rejected(err error) *Promise {
	p := New(nil, nil)
	p.Reject(err)
	return p
}

// Fulfill settles p with resp. It returns false, and does nothing, if
// p was already settled.
func (p *Promise) Fulfill(resp *http.Response) bool {
	return p.settle(StateFulfilled, resp, nil)
}

// Reject settles p with err, which must not be nil. It returns false,
// and does nothing, if p was already settled.
func (p *Promise) Reject(err error) bool {
	if err == nil {
		panic("httpstack/promise: nil rejection")
	}
	return p.settle(StateRejected, nil, err)
}

func (p *Promise) settle(s State, resp *http.Response, err error) bool {
	p.lock.Lock()
	if p.state != StatePending {
		p.lock.Unlock()
		return false
	}
	p.state = s
	p.resp = resp
	p.err = err
	handlers := p.handlers
	p.handlers = nil
	p.driver = nil
	p.cancel = nil
	close(p.done)
	p.lock.Unlock()

	for _, h := range handlers {
		h(resp, err)
	}
	return true
}

// State returns the current settlement state.
func (p *Promise) State() State {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.state
}

// Done returns a channel which is closed when p settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Result returns the settled outcome. Before p settles it returns a nil
// response and a nil error.
func (p *Promise) Result() (*http.Response, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.resp, p.err
}

// OnSettle registers f to be called with the outcome once p settles.
func (p *Promise) OnSettle(f func(*http.Response, error)) {
	p.lock.Lock()
	if p.state == StatePending {
		p.handlers = append(p.handlers, f)
		p.lock.Unlock()
		return
	}
	resp, err := p.resp, p.err
	p.lock.Unlock()
	f(resp, err)
}

// Then returns a promise which settles with the outcome of the promise
// returned by f, which is called with the outcome of p once p settles.
//
// If f returns nil, the returned promise settles with p's outcome. If
// the returned promise is settled (for example cancelled) before p
// settles, f is never called.
func (p *Promise) Then(f func(*http.Response, error) *Promise) *Promise {
	q := New(p.currentDriver(), p.Cancel)
	p.OnSettle(func(resp *http.Response, err error) {
		if q.State() != StatePending {
			return
		}
		next := f(resp, err)
		if next == nil {
			q.settle(stateOf(err), resp, err)
			return
		}
		q.follow(next)
	})
	return q
}

// follow makes p adopt the outcome of next.
func (p *Promise) follow(next *Promise) {
	p.lock.Lock()
	if p.state != StatePending {
		p.lock.Unlock()
		return
	}
	p.driver = next.currentDriver()
	p.cancel = next.Cancel
	p.lock.Unlock()

	next.OnSettle(func(resp *http.Response, err error) {
		p.settle(stateOf(err), resp, err)
	})
}

// Map returns a promise fulfilled with f applied to p's response, or
// rejected with p's error. If f returns an error the returned promise
// is rejected with it.
func (p *Promise) Map(f func(*http.Response) (*http.Response, error)) *Promise {
	return p.Then(func(resp *http.Response, err error) *Promise {
		if err != nil {
			return nil
		}
		resp, err = f(resp)
		if err != nil {
			return Rejected(err)
		}
		return Fulfilled(resp)
	})
}

// Cancel rejects p with ErrCancelled and aborts the work it is waiting
// on. It does nothing if p has already settled.
func (p *Promise) Cancel() {
	p.lock.Lock()
	if p.state != StatePending {
		p.lock.Unlock()
		return
	}
	cancel := p.cancel
	p.lock.Unlock()

	p.Reject(ErrCancelled)
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until p settles and returns its outcome. While waiting it
// drives p's driver, if any.
func (p *Promise) Wait() (*http.Response, error) {
	return p.WaitContext(context.Background())
}

// WaitContext is like Wait but gives up, returning ctx.Err(), when ctx
// is done. Giving up does not cancel p.
func (p *Promise) WaitContext(ctx context.Context) (*http.Response, error) {
	for {
		select {
		case <-p.done:
			return p.Result()
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		d := p.currentDriver()
		if d != nil && d.Tick(DefaultTick) {
			continue
		}

		timer := time.NewTimer(idlePoll)
		select {
		case <-p.done:
		case <-ctx.Done():
		case <-timer.C:
		}
		timer.Stop()
	}
}

func (p *Promise) currentDriver() Driver {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.driver
}

func stateOf(err error) State {
	if err != nil {
		return StateRejected
	}
	return StateFulfilled
}
