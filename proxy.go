// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"net/http"

	"github.com/gogama/httpstack/promise"
	"github.com/gogama/httpstack/request"
)

// Route returns a handler which sends requests whose option flag is
// true to alt, and all other requests to def. Requests, options and
// responses pass through unchanged.
func Route(flag string, def, alt Handler) Handler {
	if def == nil || alt == nil {
		panic("httpstack: nil handler")
	}
	return HandlerFunc(func(req *http.Request, opts request.Options) *promise.Promise {
		if opts.Bool(flag) {
			return alt.Handle(req, opts)
		}
		return def.Handle(req, opts)
	})
}

// WrapSync routes requests with the synchronous option set to sync, and
// all other requests to def.
func WrapSync(def, sync Handler) Handler {
	return Route(request.Synchronous, def, sync)
}

// WrapStreaming routes requests with the stream option set to
// streaming, and all other requests to def.
func WrapStreaming(def, streaming Handler) Handler {
	return Route(request.Stream, def, streaming)
}
