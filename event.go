// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

// An Event identifies the event type when installing or running a
// Listener. Install listeners in a Retrier to observe its attempt loop.
type Event int

const (
	// BeforeExecutionStart identifies the event that occurs before the
	// first attempt of a request.
	//
	// When Retrier fires BeforeExecutionStart, the execution's request
	// and options are set, and nothing else.
	BeforeExecutionStart Event = iota
	// BeforeAttempt identifies the event that occurs before each
	// individual attempt is handed to the wrapped handler.
	//
	// When Retrier fires BeforeAttempt, the execution's request field
	// is set to the request that WILL BE sent after all BeforeAttempt
	// listeners have finished. Listeners may replace it, but should
	// clone it first rather than changing it in place.
	BeforeAttempt
	// AfterAttemptTimeout identifies the event that occurs after an
	// attempt failed because of a timeout error.
	//
	// When Retrier fires AfterAttemptTimeout, the execution's error
	// field is set to the timeout error, and its attempt timeout
	// counter has been incremented.
	AfterAttemptTimeout
	// AfterAttempt identifies the event that occurs after an attempt
	// settles, whatever its outcome, and before the retry policy is
	// consulted.
	//
	// When Retrier fires AfterAttempt, the execution's response field
	// or its error field or both are set. Both are set when the
	// attempt was rejected with an error carrying a response, for
	// example by the HTTP errors middleware.
	AfterAttempt
	// AfterExecutionEnd identifies the event that occurs once the
	// retry policy decides not to retry.
	//
	// When Retrier fires AfterExecutionEnd, the execution is in the
	// same state it was in after the final AfterAttempt event EXCEPT
	// that the end time is set.
	AfterExecutionEnd
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeExecutionStart",
	"BeforeAttempt",
	"AfterAttemptTimeout",
	"AfterAttempt",
	"AfterExecutionEnd",
}

// Events returns a slice containing all events which can occur while
// Retrier executes a request, in the order in which they would occur.
func Events() []Event {
	return []Event{
		BeforeExecutionStart,
		BeforeAttempt,
		AfterAttemptTimeout,
		AfterAttempt,
		AfterExecutionEnd,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
