// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package mock provides a Handler which answers requests from a queue of
canned responses and errors, for testing code built on httpstack.

A mock Handler is interchangeable with the real transport inside a
Stack: it honors the sink, on_headers, on_stats and delay options the
same way the transport does.

	m := mock.New(
		&http.Response{StatusCode: 302, Header: http.Header{"Location": {"/next"}}},
		&http.Response{StatusCode: 200},
	)
	stack := httpstack.NewDefaultStack(m)
*/
package mock
