// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"sync"

	"github.com/gogama/httpstack/httperr"
	"github.com/gogama/httpstack/promise"
	"github.com/gogama/httpstack/request"
	"golang.org/x/net/publicsuffix"
)

// HTTPErrors returns a middleware which rejects responses with a 4XX or
// 5XX status code when the http_errors option is true. A 4XX status
// rejects with an *httperr.ClientError and a 5XX status with an
// *httperr.ServerError. Both carry the response.
func HTTPErrors() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(req *http.Request, opts request.Options) *promise.Promise {
			if !opts.Bool(request.HTTPErrors) {
				return next.Handle(req, opts)
			}
			return next.Handle(req, opts).Map(func(resp *http.Response) (*http.Response, error) {
				if resp.StatusCode < 400 {
					return resp, nil
				}
				return nil, httperr.ForResponse(req, resp, nil)
			})
		})
	}
}

// Cookies returns a middleware which attaches the cookies stored in the
// http.CookieJar held by the cookies option to each request, and stores
// the cookies set by each response.
//
// The jar may be shared by many concurrent requests, so it must
// serialize its own mutations. The jars from NewCookieJar and
// net/http/cookiejar do.
func Cookies() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(req *http.Request, opts request.Options) *promise.Promise {
			jar, err := cookieJar(opts)
			if err != nil {
				panic(err)
			}
			if jar == nil {
				return next.Handle(req, opts)
			}

			if cookies := jar.Cookies(req.URL); len(cookies) > 0 {
				req = req.Clone(req.Context())
				for _, c := range cookies {
					req.AddCookie(c)
				}
			}
			return next.Handle(req, opts).Map(func(resp *http.Response) (*http.Response, error) {
				if cookies := resp.Cookies(); len(cookies) > 0 {
					jar.SetCookies(req.URL, cookies)
				}
				return resp, nil
			})
		})
	}
}

func cookieJar(opts request.Options) (http.CookieJar, error) {
	switch v := opts[request.Cookies].(type) {
	case nil:
		return nil, nil
	case bool:
		if v {
			return nil, httperr.InvalidArgument("httpstack: cookies must be false or an http.CookieJar")
		}
		return nil, nil
	case http.CookieJar:
		return v, nil
	default:
		return nil, httperr.InvalidArgument("httpstack: cookies must be an http.CookieJar, got %T", v)
	}
}

// NewCookieJar returns an in-memory cookie jar which uses the public
// suffix list to reject cookies set for a public suffix.
func NewCookieJar() http.CookieJar {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		panic("httpstack: " + err.Error())
	}
	return jar
}

// A Transaction is one request recorded by the History middleware.
type Transaction struct {
	Request  *http.Request
	Options  request.Options
	Response *http.Response
	Err      error
}

// A Journal is an ordered record of transactions. It is safe for
// concurrent use.
type Journal struct {
	lock    sync.Mutex
	entries []Transaction
}

// Entries returns a copy of the recorded transactions, in the order
// they settled.
func (j *Journal) Entries() []Transaction {
	j.lock.Lock()
	defer j.lock.Unlock()
	return append([]Transaction(nil), j.entries...)
}

// Len returns the number of recorded transactions.
func (j *Journal) Len() int {
	j.lock.Lock()
	defer j.lock.Unlock()
	return len(j.entries)
}

func (j *Journal) add(t Transaction) {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.entries = append(j.entries, t)
}

// History returns a middleware which records every request it sees,
// with its options and outcome, in j. The record is appended when the
// request settles.
func History(j *Journal) Middleware {
	if j == nil {
		panic("httpstack: nil journal")
	}
	return func(next Handler) Handler {
		return HandlerFunc(func(req *http.Request, opts request.Options) *promise.Promise {
			p := next.Handle(req, opts)
			p.OnSettle(func(resp *http.Response, err error) {
				j.add(Transaction{Request: req, Options: opts, Response: resp, Err: err})
			})
			return p
		})
	}
}

// Tap returns a middleware which calls before, if not nil, before the
// request is handed on, and after, if not nil, as soon as the next
// handler has returned its promise. Neither callback waits for the
// promise to settle.
func Tap(before func(*http.Request, request.Options), after func(*http.Request, request.Options, *promise.Promise)) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(req *http.Request, opts request.Options) *promise.Promise {
			if before != nil {
				before(req, opts)
			}
			p := next.Handle(req, opts)
			if after != nil {
				after(req, opts, p)
			}
			return p
		})
	}
}

// MapRequest returns a middleware which replaces each request with
// f(req) before handing it on. f should clone the request rather than
// change it.
func MapRequest(f func(*http.Request) *http.Request) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(req *http.Request, opts request.Options) *promise.Promise {
			return next.Handle(f(req), opts)
		})
	}
}

// MapResponse returns a middleware which replaces each response with
// f(resp) before passing it back.
func MapResponse(f func(*http.Response) *http.Response) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(req *http.Request, opts request.Options) *promise.Promise {
			return next.Handle(req, opts).Map(func(resp *http.Response) (*http.Response, error) {
				return f(resp), nil
			})
		})
	}
}

// PrepareBody returns a middleware which makes the framing of each
// request body explicit. A body of known length gets a Content-Length,
// a body of unknown length is sent chunked, and a request without a
// body loses any framing headers.
func PrepareBody() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(req *http.Request, opts request.Options) *promise.Promise {
			return next.Handle(prepareBody(req), opts)
		})
	}
}

func prepareBody(req *http.Request) *http.Request {
	if !request.HasBody(req) {
		if req.Header.Get("Content-Length") == "" && req.Header.Get("Transfer-Encoding") == "" {
			return req
		}
		req = req.Clone(req.Context())
		req.Header.Del("Content-Length")
		req.Header.Del("Transfer-Encoding")
		req.ContentLength = 0
		return req
	}

	if req.Header.Get("Transfer-Encoding") != "" {
		return req
	}
	n, ok := request.KnownLength(req)
	if ok {
		if req.ContentLength == n && req.Header.Get("Content-Length") != "" {
			return req
		}
		req = req.Clone(req.Context())
		req.ContentLength = n
		req.Header.Set("Content-Length", strconv.FormatInt(n, 10))
		return req
	}
	req = req.Clone(req.Context())
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Del("Content-Length")
	return req
}
