// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/httpstack/request"
)

// A Policy returns the timeout for the next attempt of the execution e.
// On the initial attempt e.Err is nil and e.Attempt is zero; on a retry
// e describes the attempt which just failed. Implementations must be
// safe for concurrent use.
type Policy interface {
	Timeout(e *request.Execution) time.Duration
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(e *request.Execution) time.Duration

// Timeout calls f(e).
func (f PolicyFunc) Timeout(e *request.Execution) time.Duration {
	return f(e)
}

// DefaultPolicy is Inherit.
var DefaultPolicy Policy = Inherit

// Infinite never sets a timeout.
var Infinite Policy = Fixed(0)

// Inherit uses whatever timeout option the request was sent with, so
// every attempt gets the same budget the caller asked for.
var Inherit Policy = PolicyFunc(func(e *request.Execution) time.Duration {
	d, err := e.Options.Duration(request.Timeout)
	if err != nil {
		return 0
	}
	return d
})

// Fixed gives every attempt the timeout d.
func Fixed(d time.Duration) Policy {
	return adaptive{d}
}

// Adaptive uses usual for the first attempt and for any retry which
// follows an attempt that did not time out. After a timeout it uses
// after[n-1], where n counts the timeouts so far, repeating the last
// element once they run out.
//
// For example, with
//
//	p := Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
//
// a quick 200ms budget is used until something times out, then one
// attempt gets 1s, and any attempt after a further timeout gets 10s.
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	return append(adaptive{usual}, after...)
}

type adaptive []time.Duration

func (p adaptive) Timeout(e *request.Execution) time.Duration {
	if !e.Timeout() {
		return p[0]
	}

	i := e.AttemptTimeouts
	if i >= len(p) {
		i = len(p) - 1
	}
	return p[i]
}
