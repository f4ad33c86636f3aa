// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"time"

	"github.com/gogama/httpstack/httperr"
)

// Recognized option keys. Options with other keys are passed through
// untouched to whichever handler consumes them.
const (
	// Timeout is the total time allowed for a transfer. The value is a
	// time.Duration, or a number of seconds as an int or float64.
	Timeout = "timeout"
	// ConnectTimeout is the time allowed to establish a connection,
	// with the same value types as Timeout.
	ConnectTimeout = "connect_timeout"
	// AllowRedirects controls the redirect middleware. See
	// RedirectOptions for the accepted values.
	AllowRedirects = "allow_redirects"
	// HTTPErrors, when true, makes the HTTP error middleware reject 4XX
	// and 5XX responses.
	HTTPErrors = "http_errors"
	// Cookies holds the http.CookieJar used by the cookie middleware.
	Cookies = "cookies"
	// Sink is the destination of the response body: a file path
	// (string), an *os.File, or an io.Writer.
	Sink = "sink"
	// OnHeaders holds a func(*http.Response) error called once the
	// response headers are known, before the body is received. A
	// non-nil return value aborts the transfer.
	OnHeaders = "on_headers"
	// OnStats holds a func(*TransferStats) called once per settled
	// transfer.
	OnStats = "on_stats"
	// Delay postpones the start of a transfer, with the same value
	// types as Timeout.
	Delay = "delay"
	// Synchronous is a capability flag consumed by proxy routing.
	Synchronous = "synchronous"
	// Stream is a capability flag consumed by proxy routing.
	Stream = "stream"
	// Verify controls TLS peer verification: a bool, or the path of a
	// CA bundle.
	Verify = "verify"
	// Cert is the path of a PEM client certificate.
	Cert = "cert"
	// SSLKey is the path of the PEM private key for Cert.
	SSLKey = "ssl_key"
	// Proxy is the URL of the proxy to send requests through.
	Proxy = "proxy"
	// DecodeContent, when true, asks the transport to transparently
	// decode compressed responses.
	DecodeContent = "decode_content"
	// Headers holds extra request headers (http.Header) which the client
	// adds to each request.
	Headers = "headers"
	// Auth holds a two element []string of user name and password which
	// the client turns into a basic Authorization header.
	Auth = "auth"
)

// Options contains per-request options. Options are treated as
// immutable once passed to a handler: middleware which needs different
// options derives a new value with With or Without.
type Options map[string]interface{}

// Get returns the value stored for key.
func (o Options) Get(key string) (interface{}, bool) {
	v, ok := o[key]
	return v, ok
}

// Has reports whether a non-nil value is stored for key.
func (o Options) Has(key string) bool {
	v, ok := o[key]
	return ok && v != nil
}

// Bool returns true if the value stored for key is the bool true.
func (o Options) Bool(key string) bool {
	b, ok := o[key].(bool)
	return ok && b
}

// String returns the string stored for key, or the empty string.
func (o Options) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// Duration returns the duration stored for key. A missing or nil
// value is zero. Numbers are interpreted as seconds.
func (o Options) Duration(key string) (time.Duration, error) {
	switch v := o[key].(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case float32:
		return time.Duration(float64(v) * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	default:
		return 0, httperr.InvalidArgument("httpstack/request: %s must be a duration or a number of seconds, got %T", key, v)
	}
}

// OnHeaders returns the on_headers callback, or nil if there is none.
func (o Options) OnHeaders() (func(*http.Response) error, error) {
	switch f := o[OnHeaders].(type) {
	case nil:
		return nil, nil
	case func(*http.Response) error:
		return f, nil
	default:
		return nil, httperr.InvalidArgument("httpstack/request: on_headers must be a func(*http.Response) error, got %T", f)
	}
}

// OnStats returns the on_stats callback, or nil if there is none.
func (o Options) OnStats() (func(*TransferStats), error) {
	switch f := o[OnStats].(type) {
	case nil:
		return nil, nil
	case func(*TransferStats):
		return f, nil
	default:
		return nil, httperr.InvalidArgument("httpstack/request: on_stats must be a func(*request.TransferStats), got %T", f)
	}
}

// Clone returns a shallow copy of o. The copy of a nil Options is an
// empty, non-nil Options.
func (o Options) Clone() Options {
	o2 := make(Options, len(o)+1)
	for k, v := range o {
		o2[k] = v
	}
	return o2
}

// With returns a copy of o with key set to value.
func (o Options) With(key string, value interface{}) Options {
	o2 := o.Clone()
	o2[key] = value
	return o2
}

// Without returns a copy of o without key.
func (o Options) Without(key string) Options {
	o2 := o.Clone()
	delete(o2, key)
	return o2
}

// Merge returns a copy of defaults overlaid with o, so values in o take
// precedence.
func (o Options) Merge(defaults Options) Options {
	o2 := defaults.Clone()
	for k, v := range o {
		o2[k] = v
	}
	return o2
}
