// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gogama/httpstack/httperr"
	"github.com/gogama/httpstack/promise"
	"github.com/gogama/httpstack/request"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxHandles is the live handle cap used when MaxHandles is
	// zero.
	DefaultMaxHandles = 50
	// DefaultMaxIdle is the idle handle cache size used when MaxIdle is
	// zero.
	DefaultMaxIdle = 10
	// DefaultSelectTimeout is the longest a reactor step waits for
	// progress when SelectTimeout is zero.
	DefaultSelectTimeout = time.Second
)

// ErrClosed is the cause of the rejection of transfers that were in
// flight, or were started, after the Handler was closed.
var ErrClosed = errors.New("httpstack/transport: handler closed")

// Handler is the concurrent transport handler. It runs many transfers at
// once over a pool of reusable handles without blocking the goroutine
// that dispatches them.
//
// Handle queues a transfer and returns at once. Transfers make progress
// only while the handler's reactor is driven, either by waiting on one
// of the promises it returned, by calling Tick or Execute, or by running
// Run in a background goroutine:
//
//	h := &transport.Handler{}
//	p1 := h.Handle(req1, nil)
//	p2 := h.Handle(req2, nil)
//	h.Execute()
//
// The zero value is ready to use. Exported fields must not be changed
// after the first call to Handle.
type Handler struct {
	// Engine creates the native handles. If nil, a NetEngine is used.
	Engine Engine

	// MaxHandles caps the number of live handles. Transfers queued
	// beyond the cap wait for a handle to become free. If zero,
	// DefaultMaxHandles is used.
	MaxHandles int

	// MaxIdle is the number of idle handles kept for reuse. If zero,
	// DefaultMaxIdle is used.
	MaxIdle int

	// SelectTimeout bounds the wait of one reactor step. If zero,
	// DefaultSelectTimeout is used.
	SelectTimeout time.Duration

	// Clock schedules delayed transfers. If nil, the wall clock is used.
	Clock clock.Clock

	// Logger receives debug diagnostics. If nil, the logrus standard
	// logger is used.
	Logger logrus.FieldLogger

	once   sync.Once
	pool   *pool
	events chan event
	wake   chan struct{}
	quit   chan struct{}

	queueLock sync.Mutex
	pending   []*TransferState
	delayed   []*TransferState
	closed    bool

	tickLock sync.Mutex
	active   map[*TransferState]struct{}
	workers  sync.WaitGroup
}

// An event is sent by a worker goroutine to the reactor, either when the
// response headers are complete (reply is not nil) or when the transfer
// is over.
type event struct {
	ts      *TransferState
	headers []string
	reply   chan error
	err     error
}

func (h *Handler) init() {
	h.once.Do(func() {
		if h.Engine == nil {
			h.Engine = &NetEngine{}
		}
		if h.MaxHandles <= 0 {
			h.MaxHandles = DefaultMaxHandles
		}
		if h.MaxIdle <= 0 {
			h.MaxIdle = DefaultMaxIdle
		}
		if h.MaxIdle > h.MaxHandles {
			h.MaxIdle = h.MaxHandles
		}
		if h.SelectTimeout <= 0 {
			h.SelectTimeout = DefaultSelectTimeout
		}
		if h.Clock == nil {
			h.Clock = clock.New()
		}
		if h.Logger == nil {
			h.Logger = logrus.StandardLogger()
		}
		h.pool = newPool(h.Engine, h.MaxHandles, h.MaxIdle, h.Logger)
		h.events = make(chan event, 2*h.MaxHandles)
		h.wake = make(chan struct{}, 1)
		h.quit = make(chan struct{})
		h.active = make(map[*TransferState]struct{})
	})
}

// Handle queues a transfer of req and returns its promise. The promise's
// driver is the handler itself, so waiting on it drives every transfer
// the handler is running.
//
// Transport failures reject the promise. Malformed options panic with
// an *httperr.InvalidArgumentError.
func (h *Handler) Handle(req *http.Request, opts request.Options) *promise.Promise {
	h.init()

	ts, err := h.newTransferState(req, opts)
	if err != nil {
		rerr := httperr.NewRequestError(err.Error(), req, nil, err, nil)
		if onStats, serr := opts.OnStats(); serr == nil && onStats != nil {
			onStats(&request.TransferStats{Request: req, Err: rerr, HandlerStats: map[string]interface{}{}})
		}
		return promise.Rejected(rerr)
	}
	delay, err := opts.Duration(request.Delay)
	mustOption(err)

	ts.ctx, ts.cancel = context.WithCancel(req.Context())
	h.bindCallbacks(ts)
	ts.promise = promise.New(h, func() { h.cancel(ts) })

	h.queueLock.Lock()
	if h.closed {
		h.queueLock.Unlock()
		ts.cancel()
		rerr := httperr.NewRequestError(ErrClosed.Error(), req, nil, ErrClosed, nil)
		h.reportFailure(ts, nil, 0, rerr)
		return promise.Rejected(rerr)
	}
	if delay > 0 {
		ts.startAt = h.Clock.Now().Add(delay)
		h.delayed = append(h.delayed, ts)
	} else {
		h.pending = append(h.pending, ts)
	}
	h.queueLock.Unlock()

	h.Logger.WithFields(logrus.Fields{
		"transfer_id": ts.ID,
		"method":      ts.settings.Method,
		"delay":       delay,
	}).Debug("httpstack/transport: queued transfer")
	h.signal()
	return ts.promise
}

func (h *Handler) signal() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// cancel aborts a transfer whose promise was cancelled. A queued
// transfer is dropped from its queue; a running one has its context
// cancelled and its handle is discarded when the worker returns.
func (h *Handler) cancel(ts *TransferState) {
	if !ts.abort() {
		return
	}
	ts.cancel()
	h.queueLock.Lock()
	n := len(h.pending) + len(h.delayed)
	h.pending = removeState(h.pending, ts)
	h.delayed = removeState(h.delayed, ts)
	dequeued := len(h.pending)+len(h.delayed) < n
	h.queueLock.Unlock()
	if dequeued {
		h.reportFailure(ts, nil, 0, promise.ErrCancelled)
	}
	h.signal()
}

func removeState(list []*TransferState, ts *TransferState) []*TransferState {
	for i := range list {
		if list[i] == ts {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Tick performs one reactor step. It starts every queued transfer that
// is due and can get a handle, waits up to wait (but never longer than
// SelectTimeout) for progress, and settles the promises of finished
// transfers. A wait of zero or less polls without blocking.
//
// Tick reports whether any transfer is still queued or running.
func (h *Handler) Tick(wait time.Duration) bool {
	h.init()
	h.tickLock.Lock()
	defer h.tickLock.Unlock()

	h.dispatch()
	if !h.busy() {
		return false
	}

	if wait > h.SelectTimeout {
		wait = h.SelectTimeout
	}
	if next, ok := h.nextDelay(); ok && next < wait {
		wait = next
	}
	h.await(wait)
	h.drain()
	h.dispatch()
	return h.busy()
}

// Execute drives the reactor until no transfer is queued or running.
func (h *Handler) Execute() {
	for h.Tick(h.SelectTimeout) {
	}
}

// Run drives the reactor until ctx is done or the handler is closed,
// sleeping while there is nothing to do. It returns ctx.Err() or
// ErrClosed.
func (h *Handler) Run(ctx context.Context) error {
	h.init()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.quit:
			return ErrClosed
		default:
		}
		if h.Tick(h.SelectTimeout) {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.quit:
			return ErrClosed
		case <-h.wake:
			h.signal()
		}
	}
}

// Close cancels every queued or running transfer, rejecting its promise
// with an error wrapping ErrClosed, waits for the workers to stop, and
// closes all handles.
func (h *Handler) Close() error {
	h.init()
	h.queueLock.Lock()
	if h.closed {
		h.queueLock.Unlock()
		return nil
	}
	h.closed = true
	queued := append(h.pending, h.delayed...)
	h.pending, h.delayed = nil, nil
	h.queueLock.Unlock()
	close(h.quit)

	h.tickLock.Lock()
	defer h.tickLock.Unlock()

	for ts := range h.active {
		ts.cancel()
	}
	h.workers.Wait()
	for {
		select {
		case ev := <-h.events:
			if ev.reply != nil {
				ev.reply <- ErrClosed
				continue
			}
			h.finish(ev.ts, ErrClosed)
			continue
		default:
		}
		break
	}
	for ts := range h.active {
		h.finish(ts, ErrClosed)
	}
	for _, ts := range queued {
		ts.cancel()
		ts.sink.Abort()
		rerr := httperr.NewRequestError(ErrClosed.Error(), ts.Request, nil, ErrClosed, nil)
		h.reportFailure(ts, nil, 0, rerr)
		ts.promise.Reject(rerr)
	}
	h.pool.purge()
	return nil
}

func (h *Handler) busy() bool {
	if len(h.active) > 0 {
		return true
	}
	h.queueLock.Lock()
	defer h.queueLock.Unlock()
	return len(h.pending) > 0 || len(h.delayed) > 0
}

// nextDelay returns the time until the earliest delayed transfer is due.
func (h *Handler) nextDelay() (time.Duration, bool) {
	h.queueLock.Lock()
	defer h.queueLock.Unlock()
	if len(h.delayed) == 0 {
		return 0, false
	}
	now := h.Clock.Now()
	next := h.delayed[0].startAt
	for _, ts := range h.delayed[1:] {
		if ts.startAt.Before(next) {
			next = ts.startAt
		}
	}
	return next.Sub(now), true
}

// dispatch moves due delayed transfers to the pending queue and starts
// pending transfers while handles are available.
func (h *Handler) dispatch() {
	h.queueLock.Lock()
	now := h.Clock.Now()
	kept := h.delayed[:0]
	for _, ts := range h.delayed {
		if !ts.startAt.After(now) {
			h.pending = append(h.pending, ts)
		} else {
			kept = append(kept, ts)
		}
	}
	h.delayed = kept
	h.queueLock.Unlock()

	for {
		h.queueLock.Lock()
		n := len(h.pending)
		h.queueLock.Unlock()
		if n == 0 {
			return
		}

		ph, err := h.pool.acquire()
		if ph == nil && err == nil {
			return
		}

		h.queueLock.Lock()
		if len(h.pending) == 0 {
			h.queueLock.Unlock()
			if ph != nil {
				h.pool.release(ph)
			}
			return
		}
		ts := h.pending[0]
		h.pending = h.pending[1:]
		h.queueLock.Unlock()

		if err != nil {
			h.fail(ts, err)
			continue
		}
		h.start(ts, ph)
	}
}

func (h *Handler) start(ts *TransferState, ph *pooled) {
	ts.bind(ph)
	ts.start = h.Clock.Now()
	if err := ph.Configure(ts.settings); err != nil {
		h.active[ts] = struct{}{}
		h.finish(ts, err)
		return
	}

	h.active[ts] = struct{}{}
	h.workers.Add(1)
	go func() {
		defer h.workers.Done()
		err := ph.Perform(ts.ctx)
		h.events <- event{ts: ts, err: err}
	}()
}

// fail rejects a transfer which never got a handle.
func (h *Handler) fail(ts *TransferState, err error) {
	h.Logger.WithError(err).WithField("transfer_id", ts.ID).Debug("httpstack/transport: cannot allocate handle")
	ts.slot = released
	ts.cancel()
	ts.sink.Abort()
	rerr := httperr.NewConnectError(err.Error(), ts.Request, err, map[string]interface{}{"error": err.Error()})
	h.reportFailure(ts, nil, 0, rerr)
	ts.promise.Reject(rerr)
}

// await blocks until an event arrives, new work is queued, the handler
// is closed, or wait elapses.
func (h *Handler) await(wait time.Duration) {
	if wait <= 0 {
		return
	}
	timer := h.Clock.Timer(wait)
	defer timer.Stop()
	select {
	case ev := <-h.events:
		h.process(ev)
	case <-h.wake:
	case <-h.quit:
	case <-timer.C:
	}
}

// drain processes every event already available.
func (h *Handler) drain() {
	for {
		select {
		case ev := <-h.events:
			h.process(ev)
		default:
			return
		}
	}
}

func (h *Handler) process(ev event) {
	if ev.reply != nil {
		if ev.ts.isAborted() {
			ev.reply <- context.Canceled
			return
		}
		ev.reply <- h.receiveHeaders(ev.ts, ev.headers)
		return
	}
	h.finish(ev.ts, ev.err)
}

// finish releases a transfer's handle and settles its promise.
func (h *Handler) finish(ts *TransferState, err error) {
	delete(h.active, ts)
	ph := ts.release()
	info := ph.Info()
	if info.TotalTime == 0 {
		info.TotalTime = h.Clock.Since(ts.start)
	}

	aborted := ts.isAborted()
	if err != nil || aborted {
		h.pool.discard(ph)
	} else {
		h.pool.release(ph)
	}
	ts.cancel()

	log := h.Logger.WithFields(logrus.Fields{
		"transfer_id": ts.ID,
		"handle_id":   ph.id,
		"total_time":  info.TotalTime,
	})
	if aborted {
		log.Debug("httpstack/transport: transfer cancelled")
		ts.sink.Abort()
		h.reportFailure(ts, ts.response, info.TotalTime, promise.ErrCancelled)
		return
	}

	resp, err := outcome(ts, info, err)
	if err != nil {
		log.WithError(err).Debug("httpstack/transport: transfer failed")
		ts.sink.Abort()
	} else {
		log.WithField("status", resp.StatusCode).Debug("httpstack/transport: transfer complete")
	}

	if ts.onStats != nil {
		stats := &request.TransferStats{
			Request:      ts.Request,
			Response:     resp,
			TransferTime: info.TotalTime,
			Err:          err,
			HandlerStats: map[string]interface{}{
				"primary_ip": info.PrimaryIP,
				"connected":  info.Connected,
				"total_time": info.TotalTime.Seconds(),
			},
		}
		if resp == nil && ts.response != nil {
			stats.Response = ts.response
		}
		ts.onStats(stats)
	}

	if err != nil {
		ts.promise.Reject(err)
	} else {
		ts.promise.Fulfill(resp)
	}
}

// reportFailure hands the stats of a transfer settled outside the normal
// outcome path to its on_stats callback.
func (h *Handler) reportFailure(ts *TransferState, resp *http.Response, elapsed time.Duration, err error) {
	if ts.onStats == nil {
		return
	}
	ts.onStats(&request.TransferStats{
		Request:      ts.Request,
		Response:     resp,
		TransferTime: elapsed,
		Err:          err,
		HandlerStats: map[string]interface{}{},
	})
}
