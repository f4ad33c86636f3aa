// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the types which travel alongside an
*http.Request through a handler stack: the per-request Options bag, the
RedirectOptions parsed from it, the TransferStats reported after each
transfer, and the Execution state shared with retry and timeout
policies.

Requests themselves are plain *http.Request values, and are treated as
immutable once handed to a handler. Middleware that needs to change a
request clones it first. The helpers in this package build requests
whose bodies can be rewound, which is what allows the redirect and
retry middleware to send a request more than once:

	req, err := request.New("PUT", "https://example.com/upload", []byte("data"))
	...
	again, err := request.Rewind(req)

A request built from a plain io.Reader is a stream. It is sent once,
with chunked transfer encoding if its length is unknown, and Rewind
fails with a *httperr.SeekError.

Options are keyed by the constants in this package:

	opts := request.Options{
		request.Timeout:        2.5,
		request.AllowRedirects: map[string]interface{}{"max": 3},
		request.HTTPErrors:     true,
	}
*/
package request
