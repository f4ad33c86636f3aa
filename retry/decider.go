// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"net/http"
	"time"

	"github.com/gogama/httpstack/request"
	"github.com/gogama/httpstack/transient"
)

// A Decider reports whether the request in e should be sent again. It
// is consulted after every settled attempt, fulfilled or rejected.
type Decider interface {
	Decide(e *request.Execution) bool
}

// DeciderFunc adapts a function to the Decider interface, and adds the
// logical combinators And, Or and Not.
type DeciderFunc func(e *request.Execution) bool

// Decide calls f(e).
func (f DeciderFunc) Decide(e *request.Execution) bool {
	return f(e)
}

// And returns a decider which is true when both f and g are. g is not
// evaluated when f is false.
func (f DeciderFunc) And(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		return f(e) && g(e)
	}
}

// Or returns a decider which is true when either f or g is. g is not
// evaluated when f is true.
func (f DeciderFunc) Or(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		return f(e) || g(e)
	}
}

// Not returns the negation of f.
func (f DeciderFunc) Not() DeciderFunc {
	return func(e *request.Execution) bool {
		return !f(e)
	}
}

// DefaultTimes is the retry limit of DefaultDecider.
const DefaultTimes = 3

// DefaultDecider retries up to DefaultTimes times, provided the request
// can be resent, when the attempt failed with a transient error or
// received one of the statuses 429, 502, 503 or 504.
var DefaultDecider = Times(DefaultTimes).
	And(Rewindable).
	And(StatusCode(http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout).Or(TransientErr))

// TransientErr is true when the attempt's error falls in a transient
// category according to transient.Categorize.
var TransientErr DeciderFunc = func(e *request.Execution) bool {
	return transient.Categorize(e.Err) != transient.Not
}

// Rewindable is true when the request has no body, or its body can be
// obtained again via GetBody.
var Rewindable DeciderFunc = func(e *request.Execution) bool {
	return request.Rewindable(e.Request)
}

// Idempotent is true for the methods RFC 7231 defines as idempotent.
var Idempotent DeciderFunc = func(e *request.Execution) bool {
	switch e.Request.Method {
	case "GET", "HEAD", "OPTIONS", "TRACE", "PUT", "DELETE":
		return true
	}
	return false
}

// Times allows up to n retries, so n+1 attempts in total.
func Times(n int) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Attempt < n
	}
}

// Before allows retries until d has elapsed since the first attempt
// started.
func Before(d time.Duration) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Duration() < d
	}
}

// StatusCode is true when the attempt received a response, possibly
// attached to a rejection, with one of the given status codes.
func StatusCode(codes ...int) DeciderFunc {
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return func(e *request.Execution) bool {
		_, ok := set[e.StatusCode()]
		return ok
	}
}
