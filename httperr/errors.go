// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// OnHeadersMessage is the message of the RequestError a handler rejects
// with when the on_headers callback fails.
const OnHeadersMessage = "An error was encountered during the on_headers event"

// A RequestError indicates a failure while sending a request or
// receiving its response. It is the base type of the other transfer
// errors in this package.
type RequestError struct {
	// Message describes the failure.
	Message string
	// Request is the request which failed. It is never nil.
	Request *http.Request
	// Response is the response, or partial response, received before
	// the failure. It is nil if no response headers were received.
	Response *http.Response
	// Context contains handler-specific diagnostic values, for
	// example the transport's low-level error code. It may be nil.
	Context map[string]interface{}
	// Err is the underlying cause, if any.
	Err error
}

// NewRequestError constructs a RequestError.
func NewRequestError(msg string, req *http.Request, resp *http.Response, cause error, ctx map[string]interface{}) *RequestError {
	return &RequestError{
		Message:  msg,
		Request:  req,
		Response: resp,
		Context:  ctx,
		Err:      cause,
	}
}

func (e *RequestError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Cause returns the underlying cause. It allows RequestError to
// cooperate with github.com/pkg/errors.
func (e *RequestError) Cause() error {
	return e.Err
}

// HasResponse reports whether a response, or partial response, is
// attached to the error.
func (e *RequestError) HasResponse() bool {
	return e.Response != nil
}

// HandlerContext returns the handler-specific diagnostic context. The
// return value is never nil.
func (e *RequestError) HandlerContext() map[string]interface{} {
	if e.Context == nil {
		return map[string]interface{}{}
	}
	return e.Context
}

// Timeout reports whether the underlying cause is a timeout.
func (e *RequestError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// A ConnectError indicates a connection to the remote host could not
// be established. It never carries a response.
type ConnectError struct {
	RequestError
}

// NewConnectError constructs a ConnectError.
func NewConnectError(msg string, req *http.Request, cause error, ctx map[string]interface{}) *ConnectError {
	return &ConnectError{RequestError{
		Message: msg,
		Request: req,
		Context: ctx,
		Err:     cause,
	}}
}

// As converts e to its base type.
func (e *ConnectError) As(target interface{}) bool {
	if t, ok := target.(**RequestError); ok {
		*t = &e.RequestError
		return true
	}
	return false
}

// A BadResponseError indicates a complete but unacceptable response. The
// response is always attached.
type BadResponseError struct {
	RequestError
}

// NewBadResponseError constructs a BadResponseError.
func NewBadResponseError(msg string, req *http.Request, resp *http.Response, cause error) *BadResponseError {
	return &BadResponseError{RequestError{
		Message:  msg,
		Request:  req,
		Response: resp,
		Err:      cause,
	}}
}

// As converts e to its base type.
func (e *BadResponseError) As(target interface{}) bool {
	if t, ok := target.(**RequestError); ok {
		*t = &e.RequestError
		return true
	}
	return false
}

// A ClientError is a BadResponseError for a 4XX status code.
type ClientError struct {
	BadResponseError
}

// As converts e to one of its base types.
func (e *ClientError) As(target interface{}) bool {
	if t, ok := target.(**BadResponseError); ok {
		*t = &e.BadResponseError
		return true
	}
	return e.BadResponseError.As(target)
}

// A ServerError is a BadResponseError for a 5XX status code.
type ServerError struct {
	BadResponseError
}

// As converts e to one of its base types.
func (e *ServerError) As(target interface{}) bool {
	if t, ok := target.(**BadResponseError); ok {
		*t = &e.BadResponseError
		return true
	}
	return e.BadResponseError.As(target)
}

// ForResponse builds the error describing an unacceptable response. The
// result is a *ClientError for 4XX status codes, a *ServerError for 5XX
// status codes, and a *BadResponseError otherwise.
func ForResponse(req *http.Request, resp *http.Response, cause error) error {
	var label string
	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		label = "Client error"
	case resp.StatusCode >= 500 && resp.StatusCode < 600:
		label = "Server error"
	default:
		label = "Unsuccessful request"
	}

	msg := fmt.Sprintf("%s: `%s %s` resulted in a `%s` response",
		label, req.Method, redactedURL(req), statusText(resp))
	bre := NewBadResponseError(msg, req, resp, cause)

	switch label {
	case "Client error":
		return &ClientError{*bre}
	case "Server error":
		return &ServerError{*bre}
	default:
		return bre
	}
}

// A TooManyRedirectsError indicates a redirect chain exceeded its limit.
// The request and response are the last ones in the chain.
type TooManyRedirectsError struct {
	RequestError
	// Max is the configured redirect limit.
	Max int
}

// NewTooManyRedirectsError constructs a TooManyRedirectsError.
func NewTooManyRedirectsError(req *http.Request, resp *http.Response, max int) *TooManyRedirectsError {
	return &TooManyRedirectsError{
		RequestError: RequestError{
			Message:  fmt.Sprintf("Will not follow more than %d redirects", max),
			Request:  req,
			Response: resp,
		},
		Max: max,
	}
}

// As converts e to its base type.
func (e *TooManyRedirectsError) As(target interface{}) bool {
	if t, ok := target.(**RequestError); ok {
		*t = &e.RequestError
		return true
	}
	return false
}

// A SeekError indicates a request body could not be rewound to resend
// it, for example when following a 307 redirect with a streamed body.
type SeekError struct {
	Request *http.Request
	// Pos is the position the body could not be moved to.
	Pos int64
	Err error
}

func (e *SeekError) Error() string {
	msg := fmt.Sprintf("httpstack: could not seek the request body to position %d", e.Pos)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *SeekError) Unwrap() error {
	return e.Err
}

// An InvalidArgumentError indicates malformed configuration, such as an
// option holding a value of the wrong type.
type InvalidArgumentError struct {
	Message string
}

// InvalidArgument constructs an InvalidArgumentError from a format
// string.
func InvalidArgument(format string, args ...interface{}) *InvalidArgumentError {
	return &InvalidArgumentError{Message: fmt.Sprintf(format, args...)}
}

func (e *InvalidArgumentError) Error() string {
	return e.Message
}

// An OutOfItemsError indicates a mock handler was invoked with an empty
// queue.
type OutOfItemsError struct {
	Request *http.Request
}

func (e *OutOfItemsError) Error() string {
	if e.Request == nil {
		return "httpstack/mock: mock queue is empty"
	}
	return fmt.Sprintf("httpstack/mock: mock queue is empty (%s %s)", e.Request.Method, e.Request.URL)
}

func statusText(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

func redactedURL(req *http.Request) string {
	if req.URL == nil {
		return ""
	}
	s := req.URL.Redacted()
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	return s
}
