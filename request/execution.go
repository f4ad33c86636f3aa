// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/httpstack/transient"
)

// An Execution is the state of one request passing through the retry
// middleware, which may send it several times.
//
// The retry middleware creates an Execution when the request enters it,
// updates it as each attempt settles, and hands it to the retry and
// timeout policies so they can decide what to do next. Policies may
// store their own state with SetValue and read it back with Value, but
// should treat the exported fields as read-only.
type Execution struct {
	// Request is the request sent in the current attempt, or in the most
	// recent attempt once the attempt has settled. It is never nil.
	Request *http.Request

	// Options holds the request options the execution was started with.
	Options Options

	// Start is the time the first attempt started.
	Start time.Time

	// End is the time the execution ended. It is the zero value until
	// the retry middleware decides no further attempt will be made.
	End time.Time

	// Attempt is the zero-based number of the current attempt: zero on
	// the initial attempt, one on the first retry, and so on.
	Attempt int

	// AttemptTimeouts counts the attempts which ended in a timeout.
	AttemptTimeouts int

	// Response is the response to the most recent attempt. It is nil if
	// the attempt was rejected without a response, or is underway.
	Response *http.Response

	// Err is the rejection reason of the most recent attempt. It is nil
	// if the attempt was fulfilled, or is underway.
	//
	// The error may carry a Response too, for example when the HTTP
	// errors middleware rejects a 5XX response.
	Err error

	data context.Context
}

// StatusCode returns the status code of the most recent response, or 0
// if there is no response.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the headers of the most recent response, or a nil
// header if there is no response.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Response.Header
}

// Duration returns the time elapsed between Start and End, or between
// Start and now if the execution has not ended. It is zero before the
// execution starts.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return !e.Start.IsZero()
}

// Ended indicates whether the execution has ended.
func (e *Execution) Ended() bool {
	return !e.End.IsZero()
}

// Timeout indicates whether Err currently holds a timeout error.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// SetValue stores arbitrary policy data in the execution. The key
// follows the rules of context.WithValue: it must be comparable, and
// should be of an unexported type to avoid collisions.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data stored for key, or nil.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
