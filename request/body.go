// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gogama/httpstack/httperr"
	"golang.org/x/net/http/httpguts"
)

const badBodyTypeMsg = "httpstack/request: invalid type (for body use nil, " +
	"string, []byte, io.ReadSeeker or io.Reader)"

const nilCtxMsg = "httpstack/request: nil context"

const badSeekerMsg = "httpstack/request: cannot measure io.ReadSeeker body: %v"

// New wraps NewWithContext using the background context.
func New(method, url string, body interface{}) (*http.Request, error) {
	return NewWithContext(context.Background(), method, url, body)
}

// NewWithContext returns a new request given a method, URL, and
// optional body.
//
// Parameter body may be nil (empty body), or it may be a string,
// []byte, io.ReadSeeker, or io.Reader. Every type except a plain
// io.Reader produces a rewindable request: the request's GetBody is set
// so that middleware which resends the request, such as the redirect
// and retry middleware, can obtain a fresh copy of the body. An
// io.ReadSeeker is rewound to the offset it had when NewWithContext was
// called, and its remaining length becomes the request's ContentLength.
//
// A plain io.Reader produces a streaming request with an unknown length
// which cannot be resent. An io.ReadSeeker which fails to seek while its
// length is measured yields an *httperr.InvalidArgumentError, since no
// request exists yet.
func NewWithContext(ctx context.Context, method, url string, body interface{}) (*http.Request, error) {
	if ctx == nil {
		return nil, httperr.InvalidArgument(nilCtxMsg)
	}
	if method == "" {
		method = "GET"
	}
	if !httpguts.ValidHeaderFieldName(method) {
		return nil, httperr.InvalidArgument("httpstack/request: invalid method %q", method)
	}

	switch x := body.(type) {
	case nil:
		return http.NewRequestWithContext(ctx, method, url, nil)
	case string:
		return http.NewRequestWithContext(ctx, method, url, strings.NewReader(x))
	case []byte:
		return http.NewRequestWithContext(ctx, method, url, bytes.NewReader(x))
	case *bytes.Reader, *strings.Reader, *bytes.Buffer:
		return http.NewRequestWithContext(ctx, method, url, x.(io.Reader))
	case io.ReadSeeker:
		return newSeekable(ctx, method, url, x)
	case io.Reader:
		return http.NewRequestWithContext(ctx, method, url, x)
	default:
		return nil, httperr.InvalidArgument(badBodyTypeMsg)
	}
}

func newSeekable(ctx context.Context, method, url string, rs io.ReadSeeker) (*http.Request, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, httperr.InvalidArgument(badSeekerMsg, err)
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, httperr.InvalidArgument(badSeekerMsg, err)
	}
	if _, err = rs.Seek(start, io.SeekStart); err != nil {
		return nil, httperr.InvalidArgument(badSeekerMsg, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, io.NopCloser(rs))
	if err != nil {
		return nil, err
	}
	req.ContentLength = end - start
	if req.ContentLength == 0 {
		req.Body = http.NoBody
	}
	req.GetBody = func() (io.ReadCloser, error) {
		if _, err := rs.Seek(start, io.SeekStart); err != nil {
			return nil, &httperr.SeekError{Request: req, Pos: start, Err: err}
		}
		return io.NopCloser(rs), nil
	}
	return req, nil
}

// HasBody reports whether req carries a request body.
func HasBody(req *http.Request) bool {
	return req.Body != nil && req.Body != http.NoBody
}

// KnownLength returns the length of req's body, if it is known. A
// request without a body has a known length of zero.
func KnownLength(req *http.Request) (int64, bool) {
	if !HasBody(req) {
		return 0, true
	}
	if req.ContentLength > 0 {
		return req.ContentLength, true
	}
	if v := req.Header.Get("Content-Length"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil && n >= 0 {
			return n, true
		}
	}
	return -1, false
}

// Rewindable reports whether a copy of req could be sent again.
func Rewindable(req *http.Request) bool {
	return !HasBody(req) || req.GetBody != nil
}

// Rewind returns a clone of req whose body is positioned at the start,
// ready to be sent again. The clone shares req's context.
//
// If req has a body but no way to obtain a fresh copy of it, Rewind
// returns a *httperr.SeekError.
func Rewind(req *http.Request) (*http.Request, error) {
	req2 := req.Clone(req.Context())
	if !HasBody(req) {
		return req2, nil
	}
	if req.GetBody == nil {
		return nil, &httperr.SeekError{
			Request: req,
			Err:     fmt.Errorf("body of %s request is a stream", req.Method),
		}
	}
	body, err := req.GetBody()
	if err != nil {
		var se *httperr.SeekError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, &httperr.SeekError{Request: req, Err: err}
	}
	req2.Body = body
	return req2, nil
}

// DropBody returns a clone of req with the body and the headers
// describing it removed.
func DropBody(req *http.Request) *http.Request {
	req2 := req.Clone(req.Context())
	req2.Body = nil
	req2.GetBody = nil
	req2.ContentLength = 0
	req2.TransferEncoding = nil
	req2.Header.Del("Content-Length")
	req2.Header.Del("Content-Type")
	req2.Header.Del("Transfer-Encoding")
	return req2
}
