// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mock

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gogama/httpstack/httperr"
	"github.com/gogama/httpstack/promise"
	"github.com/gogama/httpstack/request"
	"github.com/gogama/httpstack/sink"
)

// A Func is a queue item computed when it is dequeued. Its result is
// treated as if it had been queued in its place, so it may be a
// response, an error, a promise, or another Func.
type Func func(req *http.Request, opts request.Options) interface{}

// Handler is a mock handler holding a FIFO queue of items. Each call to
// Handle dequeues exactly one item:
//
//   - an *http.Response fulfills the returned promise;
//   - an error rejects it;
//   - a *promise.Promise is adopted;
//   - a Func is called and its result handled like a queued item.
//
// When the queue is empty, Handle rejects with an
// *httperr.OutOfItemsError.
//
// Handler is safe for concurrent use. The exported fields must be set
// before the first call to Handle.
type Handler struct {
	// OnFulfilled, if not nil, is called with every response the
	// handler fulfills a promise with.
	OnFulfilled func(*http.Response)

	// OnRejected, if not nil, is called with every error the handler
	// rejects a promise with.
	OnRejected func(error)

	// Clock schedules delayed answers. If nil, the wall clock is used.
	Clock clock.Clock

	lock        sync.Mutex
	queue       []interface{}
	lastRequest *http.Request
	lastOptions request.Options
}

// New returns a mock handler with the given items queued. It panics if
// an item has an unsupported type.
func New(items ...interface{}) *Handler {
	h := &Handler{}
	if err := h.Append(items...); err != nil {
		panic(err)
	}
	return h
}

// Append queues items at the end of the queue. If any item has an
// unsupported type, nothing is queued and an *httperr.InvalidArgumentError
// is returned.
func (h *Handler) Append(items ...interface{}) error {
	for _, item := range items {
		if err := checkItem(item); err != nil {
			return err
		}
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	h.queue = append(h.queue, items...)
	return nil
}

func checkItem(item interface{}) error {
	switch x := item.(type) {
	case *http.Response:
		if x != nil {
			return nil
		}
	case *promise.Promise:
		if x != nil {
			return nil
		}
	case Func:
		if x != nil {
			return nil
		}
	case func(*http.Request, request.Options) interface{}:
		if x != nil {
			return nil
		}
	case error:
		return nil
	}
	return httperr.InvalidArgument("httpstack/mock: expected a response, error, promise or Func, got %T", item)
}

// Len returns the number of items in the queue.
func (h *Handler) Len() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.queue)
}

// LastRequest returns the request of the most recent call to Handle.
func (h *Handler) LastRequest() *http.Request {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.lastRequest
}

// LastOptions returns the options of the most recent call to Handle.
func (h *Handler) LastOptions() request.Options {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.lastOptions
}

// Handle answers req with the next queued item.
//
// Malformed on_headers, on_stats, delay or sink options panic with an
// *httperr.InvalidArgumentError, as with the real transport.
func (h *Handler) Handle(req *http.Request, opts request.Options) *promise.Promise {
	if req == nil {
		panic(httperr.InvalidArgument("httpstack/mock: nil request"))
	}
	onHeaders, err := opts.OnHeaders()
	mustOption(err)
	onStats, err := opts.OnStats()
	mustOption(err)
	delay, err := opts.Duration(request.Delay)
	mustOption(err)
	s, err := sink.Open(opts[request.Sink])
	mustOption(err)

	h.lock.Lock()
	h.lastRequest = req
	h.lastOptions = opts
	var item interface{}
	ok := len(h.queue) > 0
	if ok {
		item = h.queue[0]
		h.queue[0] = nil
		h.queue = h.queue[1:]
	}
	h.lock.Unlock()

	var p *promise.Promise
	if ok {
		p = resolve(req, opts, item)
	} else {
		p = promise.Rejected(&httperr.OutOfItemsError{Request: req})
	}
	if delay > 0 {
		p = h.after(delay, p)
	}

	start := h.clock().Now()
	return p.Then(func(resp *http.Response, err error) *promise.Promise {
		if err == nil {
			resp, err = deliver(req, resp, onHeaders, s)
		}
		if onStats != nil {
			onStats(&request.TransferStats{
				Request:      req,
				Response:     resp,
				TransferTime: h.clock().Since(start),
				Err:          err,
			})
		}
		if err != nil {
			if h.OnRejected != nil {
				h.OnRejected(err)
			}
			return promise.Rejected(err)
		}
		if h.OnFulfilled != nil {
			h.OnFulfilled(resp)
		}
		return promise.Fulfilled(resp)
	})
}

func (h *Handler) clock() clock.Clock {
	if h.Clock == nil {
		return clock.New()
	}
	return h.Clock
}

// after returns a promise adopting p's outcome once d has elapsed.
func (h *Handler) after(d time.Duration, p *promise.Promise) *promise.Promise {
	var timer *clock.Timer
	q := promise.New(nil, func() {
		timer.Stop()
		p.Cancel()
	})
	timer = h.clock().AfterFunc(d, func() {
		p.OnSettle(func(resp *http.Response, err error) {
			if err != nil {
				q.Reject(err)
			} else {
				q.Fulfill(resp)
			}
		})
	})
	return q
}

// resolve turns a queue item into a promise. Func items are called,
// repeatedly if they return another Func.
func resolve(req *http.Request, opts request.Options, item interface{}) *promise.Promise {
	for {
		switch x := item.(type) {
		case *http.Response:
			return promise.Fulfilled(x)
		case *promise.Promise:
			return x
		case Func:
			item = x(req, opts)
		case func(*http.Request, request.Options) interface{}:
			item = x(req, opts)
		case error:
			return promise.Rejected(x)
		}
		if err := checkItem(item); err != nil {
			panic(err)
		}
	}
}

// deliver runs on_headers and copies the body into the sink, as the
// transport does while receiving a real response.
func deliver(req *http.Request, resp *http.Response, onHeaders func(*http.Response) error, s *sink.Sink) (*http.Response, error) {
	if onHeaders != nil {
		if err := onHeaders(resp); err != nil {
			return nil, httperr.NewRequestError(httperr.OnHeadersMessage, req, resp, err, nil)
		}
	}
	if s.Target() == nil || resp.Body == nil {
		return resp, nil
	}

	_, err := io.Copy(s, resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		s.Abort()
		return nil, httperr.NewRequestError(err.Error(), req, resp, err, nil)
	}
	body, err := s.Body()
	if err != nil {
		return nil, httperr.NewRequestError(err.Error(), req, resp, err, nil)
	}
	resp2 := new(http.Response)
	*resp2 = *resp
	resp2.Body = body
	return resp2, nil
}

func mustOption(err error) {
	if err != nil {
		panic(err)
	}
}
