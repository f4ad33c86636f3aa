// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/httpstack/request"
)

// A Policy decides, after each settled attempt, whether to send the
// request again and how long to wait first. Implementations must be
// safe for concurrent use.
type Policy interface {
	Decider
	Waiter
}

// DefaultPolicy combines DefaultDecider and DefaultWaiter.
var DefaultPolicy Policy = NewPolicy(DefaultDecider, DefaultWaiter)

// Never is a policy which never retries.
var Never Policy = NewPolicy(Times(0), Fixed(0))

type policy struct {
	Decider
	Waiter
}

// NewPolicy composes a Decider and a Waiter into a Policy.
func NewPolicy(d Decider, w Waiter) Policy {
	if d == nil {
		panic("httpstack/retry: nil decider")
	}
	if w == nil {
		panic("httpstack/retry: nil waiter")
	}
	return policy{d, w}
}

// Func returns a Policy from plain decide and wait functions.
func Func(decide func(*request.Execution) bool, wait func(*request.Execution) time.Duration) Policy {
	return NewPolicy(DeciderFunc(decide), WaiterFunc(wait))
}
