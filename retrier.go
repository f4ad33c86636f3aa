// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"errors"
	"net/http"
	"time"

	"github.com/gogama/httpstack/httperr"
	"github.com/gogama/httpstack/promise"
	"github.com/gogama/httpstack/request"
	"github.com/gogama/httpstack/retry"
	"github.com/gogama/httpstack/timeout"
)

// A Retrier resends failed requests as its retry policy directs. Use
// its Middleware method to install it in a Stack. The zero value is a
// valid configuration.
//
// Each attempt is sent through the wrapped handler with the timeout
// option set from the timeout policy. The wait before a retry is
// requested through the delay option, so the transport schedules the
// retry without blocking. A retry resends the request body through
// GetBody; a request whose body cannot be rewound is not retried, and a
// retry policy which insists anyway gets an *httperr.SeekError.
type Retrier struct {
	// Policy decides when to retry failed attempts and how long to wait
	// before retrying.
	//
	// If Policy is nil, retry.DefaultPolicy is used.
	Policy retry.Policy
	// Timeout specifies the timeout of each individual attempt.
	//
	// If Timeout is nil, timeout.DefaultPolicy is used.
	Timeout timeout.Policy
	// Listeners observe the attempt loop. If nil, nothing is notified.
	Listeners *ListenerGroup
}

// Retry returns the middleware of a Retrier using retry policy rp and
// timeout policy tp, either of which may be nil.
func Retry(rp retry.Policy, tp timeout.Policy) Middleware {
	r := &Retrier{Policy: rp, Timeout: tp}
	return r.Middleware()
}

// Middleware returns a middleware which applies r to every request.
func (r *Retrier) Middleware() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(req *http.Request, opts request.Options) *promise.Promise {
			e := &request.Execution{
				Request: req,
				Options: opts,
			}
			r.Listeners.run(BeforeExecutionStart, e)
			e.Start = time.Now()
			return r.attempt(next, e, 0)
		})
	}
}

func (r *Retrier) retryPolicy() retry.Policy {
	if r.Policy == nil {
		return retry.DefaultPolicy
	}
	return r.Policy
}

func (r *Retrier) timeoutPolicy() timeout.Policy {
	if r.Timeout == nil {
		return timeout.DefaultPolicy
	}
	return r.Timeout
}

func (r *Retrier) attempt(next Handler, e *request.Execution, wait time.Duration) *promise.Promise {
	// The timeout policy sees the outcome of the previous attempt.
	opts := e.Options
	if d := r.timeoutPolicy().Timeout(e); d > 0 {
		opts = opts.With(request.Timeout, d)
	}
	e.Response, e.Err = nil, nil
	if e.Attempt > 0 {
		opts = opts.With(request.Delay, wait)
	}
	r.Listeners.run(BeforeAttempt, e)

	return next.Handle(e.Request, opts).Then(func(resp *http.Response, err error) *promise.Promise {
		e.Response, e.Err = resp, err
		var re *httperr.RequestError
		if resp == nil && errors.As(err, &re) {
			e.Response = re.Response
		}
		if err != nil && e.Timeout() {
			e.AttemptTimeouts++
			r.Listeners.run(AfterAttemptTimeout, e)
		}
		r.Listeners.run(AfterAttempt, e)

		if errors.Is(err, promise.ErrCancelled) || e.Request.Context().Err() != nil || !r.retryPolicy().Decide(e) {
			r.end(e)
			return nil
		}

		d := r.retryPolicy().Wait(e)
		req, rerr := request.Rewind(e.Request)
		if rerr != nil {
			e.Err = rerr
			r.end(e)
			return promise.Rejected(rerr)
		}
		if e.Response != nil && e.Response.Body != nil {
			_ = e.Response.Body.Close()
		}
		e.Attempt++
		e.Request = req
		return r.attempt(next, e, d)
	})
}

func (r *Retrier) end(e *request.Execution) {
	e.End = time.Now()
	r.Listeners.run(AfterExecutionEnd, e)
}
