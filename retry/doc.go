// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides the policies used by the httpstack Retry
// middleware to decide whether a failed request should be sent again,
// and how long to back off first.
//
// A Policy is a Decider plus a Waiter. Both have constructors for the
// common cases, and deciders compose with And, Or and Not:
//
//	decider := retry.Times(3).
//		And(retry.Idempotent).
//		And(retry.StatusCode(503).Or(retry.TransientErr))
//	waiter := retry.RetryAfter(retry.Exponential(100*time.Millisecond, 2*time.Second, nil))
//	policy := retry.NewPolicy(decider, waiter)
//
// The wait a policy returns is passed to the next attempt as its delay
// option, so the backoff is scheduled by the transport rather than
// blocking the caller.
package retry
