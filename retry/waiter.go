// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gogama/httpstack/request"
)

// A Waiter returns how long to wait before the next attempt. It is only
// consulted after the Decider chose to retry.
type Waiter interface {
	Wait(e *request.Execution) time.Duration
}

// WaiterFunc adapts a function to the Waiter interface.
type WaiterFunc func(e *request.Execution) time.Duration

// Wait calls f(e).
func (f WaiterFunc) Wait(e *request.Execution) time.Duration {
	return f(e)
}

// DefaultWaiter honours a Retry-After response header and otherwise
// backs off exponentially from 50ms up to 1s with full jitter.
var DefaultWaiter = RetryAfter(Exponential(50*time.Millisecond, time.Second, rand.New(rand.NewSource(time.Now().UnixNano()))))

// Fixed always waits d.
func Fixed(d time.Duration) Waiter {
	return WaiterFunc(func(_ *request.Execution) time.Duration {
		return d
	})
}

// Exponential waits base*2^attempt, capped at max. If r is not nil the
// wait is a uniformly random value below that ceiling ("full jitter").
func Exponential(base, max time.Duration, r *rand.Rand) Waiter {
	if base <= 0 {
		panic("httpstack/retry: base must be positive")
	}
	if max < base {
		panic("httpstack/retry: max must be at least base")
	}
	return &expWaiter{base: base, max: max, rand: r}
}

type expWaiter struct {
	base, max time.Duration
	lock      sync.Mutex
	rand      *rand.Rand
}

func (w *expWaiter) Wait(e *request.Execution) time.Duration {
	ceil := w.max
	if e.Attempt < 62 {
		d := w.base << uint(e.Attempt)
		if d > 0 && d < w.max {
			ceil = d
		}
	}
	if w.rand == nil {
		return ceil
	}

	w.lock.Lock()
	defer w.lock.Unlock()
	return time.Duration(w.rand.Int63n(int64(ceil)))
}

// RetryAfter waits as long as the response's Retry-After header asks,
// given either as seconds or as an HTTP date. Without a usable header
// it defers to fallback.
func RetryAfter(fallback Waiter) Waiter {
	return WaiterFunc(func(e *request.Execution) time.Duration {
		if d, ok := retryAfter(e.Header().Get("Retry-After"), time.Now()); ok {
			return d
		}
		return fallback.Wait(e)
	})
}

func retryAfter(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	d := t.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}
