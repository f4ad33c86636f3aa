// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"net/http"
	"net/url"
	"runtime"
	"sync"

	"github.com/gogama/httpstack/httperr"
	"github.com/gogama/httpstack/promise"
	"github.com/gogama/httpstack/request"
	"github.com/gogama/httpstack/transport"
)

// Version is the library version reported in the default User-Agent.
const Version = "1.0.0"

// DefaultOptions are the options a Client applies to every request
// unless its own Options, or the request's, say otherwise.
var DefaultOptions = request.Options{
	request.AllowRedirects: true,
	request.HTTPErrors:     true,
	request.DecodeContent:  true,
}

// DefaultUserAgent returns the User-Agent a Client sends when the
// request has none.
func DefaultUserAgent() string {
	return "httpstack/" + Version + " " + runtime.Version()
}

// A Client sends requests through a Handler, usually a Stack. Its zero
// value is a valid configuration.
//
// The zero value client sends requests through NewDefaultStack around
// a transport.Handler it owns, which Close releases. Client is safe for
// concurrent use by multiple goroutines, and should be reused rather
// than created as needed.
//
// On top of its handler, Client adds the following features:
//
// • it merges DefaultOptions, then Options, under the options of each
// request;
//
// • it applies the headers option, a map of extra request headers,
// and the auth option, a []string{user, password} for basic
// authentication; and
//
// • it sets a User-Agent header if the request has none.
type Client struct {
	// Handler sends the requests. If nil, a default stack around a
	// concurrent transport is used.
	Handler Handler
	// Options are merged under the options of each request.
	Options request.Options
	// UserAgent is sent when a request has no User-Agent header. If
	// empty, DefaultUserAgent is used.
	UserAgent string

	once  sync.Once
	h     Handler
	owned *transport.Handler
}

func (c *Client) handler() Handler {
	c.once.Do(func() {
		if c.Handler != nil {
			c.h = c.Handler
			return
		}
		c.owned = &transport.Handler{}
		c.h = NewDefaultStack(c.owned)
	})
	return c.h
}

// Send sends req with opts and returns a promise of its response. It
// does not block. The caller's request is never modified.
//
// Send panics with an *httperr.InvalidArgumentError if the headers or
// auth option is malformed.
func (c *Client) Send(req *http.Request, opts request.Options) *promise.Promise {
	opts = opts.Merge(c.Options.Merge(DefaultOptions))
	return c.handler().Handle(c.prepare(req, opts), opts)
}

// Do sends req and waits for its response, following the policies of
// the client's handler. If the request's context is done first, the
// exchange is cancelled and the context's error returned.
//
// With the default options a 4XX or 5XX response is an error: an
// *httperr.ClientError or *httperr.ServerError carrying the response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	p := c.Send(req, nil)
	ctx := req.Context()
	resp, err := p.WaitContext(ctx)
	if err != nil && ctx.Err() != nil && p.State() == promise.StatePending {
		p.Cancel()
	}
	return resp, err
}

// Get issues a GET to the specified URL, using the same policies
// followed by Do.
func (c *Client) Get(url string) (*http.Response, error) {
	return Get(c, url)
}

// Head issues a HEAD to the specified URL, using the same policies
// followed by Do.
func (c *Client) Head(url string) (*http.Response, error) {
	return Head(c, url)
}

// Post issues a POST to the specified URL, using the same policies
// followed by Do. The body may be any of the types supported by
// request.New.
func (c *Client) Post(url, contentType string, body interface{}) (*http.Response, error) {
	return Post(c, url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
func (c *Client) PostForm(url string, data url.Values) (*http.Response, error) {
	return PostForm(c, url, data)
}

// Close closes the transport the client created for itself, if any.
// It does nothing for a client with its own Handler.
func (c *Client) Close() error {
	c.handler()
	if c.owned == nil {
		return nil
	}
	return c.owned.Close()
}

func (c *Client) prepare(req *http.Request, opts request.Options) *http.Request {
	header, err := headersOption(opts[request.Headers])
	if err != nil {
		panic(err)
	}
	user, password, auth, err := authOption(opts[request.Auth])
	if err != nil {
		panic(err)
	}

	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent()
	}
	if len(header) == 0 && !auth && req.Header.Get("User-Agent") != "" {
		return req
	}

	req = req.Clone(req.Context())
	for name, values := range header {
		req.Header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	if auth {
		req.SetBasicAuth(user, password)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", ua)
	}
	return req
}

func headersOption(v interface{}) (http.Header, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case http.Header:
		return x, nil
	case map[string][]string:
		return x, nil
	case map[string]string:
		h := make(http.Header, len(x))
		for name, value := range x {
			h.Set(name, value)
		}
		return h, nil
	default:
		return nil, httperr.InvalidArgument("httpstack: headers must be an http.Header or a map, got %T", v)
	}
}

func authOption(v interface{}) (user, password string, ok bool, err error) {
	switch x := v.(type) {
	case nil:
		return "", "", false, nil
	case []string:
		if len(x) == 2 || len(x) == 3 && (x[2] == "" || x[2] == "basic") {
			return x[0], x[1], true, nil
		}
	}
	return "", "", false, httperr.InvalidArgument("httpstack: auth must be []string{user, password}, got %v", v)
}
