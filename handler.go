// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"net/http"

	"github.com/gogama/httpstack/promise"
	"github.com/gogama/httpstack/request"
)

// A Handler sends an HTTP request and returns a promise of its
// response.
//
// Handle must not panic or block on ordinary transport failures. They
// settle the promise as rejected, with an error from package httperr
// which retains the request, any partial response, and a handler
// context. Malformed options are usage errors and may panic.
//
// A Handler must be safe to call repeatedly with different requests
// and options.
type Handler interface {
	Handle(req *http.Request, opts request.Options) *promise.Promise
}

// The HandlerFunc type is an adapter to allow the use of ordinary
// functions as handlers. If f is a function with appropriate signature,
// then HandlerFunc(f) is a Handler that calls f.
type HandlerFunc func(*http.Request, request.Options) *promise.Promise

// Handle calls f(req, opts).
func (f HandlerFunc) Handle(req *http.Request, opts request.Options) *promise.Promise {
	return f(req, opts)
}

// A Middleware wraps a Handler to produce another Handler, adding
// behavior around the wrapped one without modifying it.
type Middleware func(next Handler) Handler
