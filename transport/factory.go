// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"syscall"

	"github.com/gogama/httpstack/httperr"
	"github.com/gogama/httpstack/request"
	"github.com/gogama/httpstack/sink"
	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"
)

// newTransferState builds the state and handle settings of a transfer.
// Malformed options are usage errors and panic. Problems with the
// request itself are returned, to be reported through the promise.
func (h *Handler) newTransferState(req *http.Request, opts request.Options) (*TransferState, error) {
	if req == nil {
		panic(httperr.InvalidArgument("httpstack/transport: nil request"))
	}

	ts := &TransferState{
		ID:      uuid.New(),
		Request: req,
		Options: opts,
	}
	s := &Settings{
		Method:        req.Method,
		URL:           req.URL,
		Host:          req.Host,
		Header:        make(http.Header, len(req.Header)),
		VerifyPeer:    true,
		DecodeContent: true,
	}
	ts.settings = s
	if s.Method == "" {
		s.Method = http.MethodGet
	}

	mustOption(h.applyOptions(ts, opts))

	if req.URL == nil || req.URL.Host == "" {
		return ts, fmt.Errorf("httpstack/transport: request URL %q is not absolute", urlString(req))
	}
	for name, values := range req.Header {
		if !httpguts.ValidHeaderFieldName(name) {
			return ts, fmt.Errorf("httpstack/transport: invalid header name %q", name)
		}
		for _, v := range values {
			if !httpguts.ValidHeaderFieldValue(v) {
				return ts, fmt.Errorf("httpstack/transport: invalid value for header %q", name)
			}
		}
		switch http.CanonicalHeaderKey(name) {
		case "Content-Length", "Transfer-Encoding":
		default:
			s.Header[name] = append([]string(nil), values...)
		}
	}

	if request.HasBody(req) {
		s.Body = req.Body
		if n, ok := request.KnownLength(req); ok {
			s.ContentLength = n
		} else {
			s.ContentLength = -1
		}
	}
	return ts, nil
}

func (h *Handler) applyOptions(ts *TransferState, opts request.Options) error {
	s := ts.settings
	var err error
	if s.Timeout, err = opts.Duration(request.Timeout); err != nil {
		return err
	}
	if s.ConnectTimeout, err = opts.Duration(request.ConnectTimeout); err != nil {
		return err
	}
	if ts.onHeaders, err = opts.OnHeaders(); err != nil {
		return err
	}
	if ts.onStats, err = opts.OnStats(); err != nil {
		return err
	}
	if ts.sink, err = sink.Open(opts[request.Sink]); err != nil {
		return err
	}

	switch v := opts[request.Verify].(type) {
	case nil:
	case bool:
		s.VerifyPeer = v
	case string:
		s.CAFile = v
	default:
		return httperr.InvalidArgument("httpstack/transport: verify must be a bool or a CA bundle path, got %T", v)
	}
	var ok bool
	if s.CertFile, ok = stringOption(opts, request.Cert); !ok {
		return httperr.InvalidArgument("httpstack/transport: cert must be a file path")
	}
	if s.KeyFile, ok = stringOption(opts, request.SSLKey); !ok {
		return httperr.InvalidArgument("httpstack/transport: ssl_key must be a file path")
	}
	if s.Proxy, ok = proxyURL(opts[request.Proxy]); !ok {
		return httperr.InvalidArgument("httpstack/transport: proxy must be a URL")
	}
	if opts.Has(request.DecodeContent) {
		s.DecodeContent = opts.Bool(request.DecodeContent)
	}
	return nil
}

func mustOption(err error) {
	if err != nil {
		panic(err)
	}
}

func stringOption(opts request.Options, key string) (string, bool) {
	switch v := opts[key].(type) {
	case nil:
		return "", true
	case string:
		return v, true
	default:
		return "", false
	}
}

// bindCallbacks wires the handle callbacks of a transfer. They run on
// the worker goroutine: body bytes go straight to the sink, while the
// complete header block is handed to the reactor, which parses it and
// runs on_headers before the body is received.
func (h *Handler) bindCallbacks(ts *TransferState) {
	var lines []string
	ts.settings.HeaderFunc = func(line string) error {
		if line != "" {
			lines = append(lines, line)
			return nil
		}
		reply := make(chan error, 1)
		h.events <- event{ts: ts, headers: lines, reply: reply}
		select {
		case err := <-reply:
			return err
		case <-ts.ctx.Done():
			return ts.ctx.Err()
		}
	}
	ts.settings.WriteFunc = ts.sink.Write
}

// receiveHeaders runs on the reactor once a transfer's headers are in.
func (h *Handler) receiveHeaders(ts *TransferState, lines []string) error {
	ts.headerLines = lines
	resp, err := buildResponse(ts.Request, lines)
	if err != nil {
		return err
	}
	ts.response = resp
	if ts.onHeaders != nil {
		if err = ts.onHeaders(resp); err != nil {
			ts.onHeadersErr = err
			return err
		}
	}
	return nil
}

func buildResponse(req *http.Request, lines []string) (*http.Response, error) {
	if len(lines) == 0 {
		return nil, errors.New("httpstack/transport: no status line received")
	}
	sl, err := request.ParseStatusLine(lines[0])
	if err != nil {
		return nil, err
	}
	resp := &http.Response{
		Status:        sl.Status(),
		StatusCode:    sl.StatusCode,
		Proto:         sl.Proto,
		ProtoMajor:    sl.ProtoMajor,
		ProtoMinor:    sl.ProtoMinor,
		Header:        request.HeadersFromLines(lines[1:]),
		Body:          http.NoBody,
		ContentLength: -1,
		Request:       req,
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n >= 0 {
			resp.ContentLength = n
		}
	}
	return resp, nil
}

// outcome turns a finished transfer into the response or error its
// promise settles with.
func outcome(ts *TransferState, info Info, err error) (*http.Response, error) {
	req := ts.Request
	diag := map[string]interface{}{
		"primary_ip": info.PrimaryIP,
		"total_time": info.TotalTime.Seconds(),
	}

	if err == nil {
		if ts.response == nil {
			return nil, httperr.NewRequestError("httpstack/transport: no response was received", req, nil, nil, diag)
		}
		body, berr := ts.sink.Body()
		if berr != nil {
			return nil, httperr.NewRequestError(berr.Error(), req, ts.response, berr, diag)
		}
		ts.response.Body = body
		return ts.response, nil
	}

	if ts.onHeadersErr != nil {
		return nil, httperr.NewRequestError(httperr.OnHeadersMessage, req, ts.response, ts.onHeadersErr, diag)
	}

	diag["errno"] = int(errnoOf(err))
	diag["error"] = err.Error()
	msg := fmt.Sprintf("httpstack/transport: %s %s: %v", req.Method, urlString(req), err)
	if ts.response == nil && !info.Connected {
		return nil, httperr.NewConnectError(msg, req, err, diag)
	}
	return nil, httperr.NewRequestError(msg, req, ts.response, err, diag)
}

func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return syscall.ETIMEDOUT
	}
	return 0
}

func urlString(req *http.Request) string {
	if req.URL == nil {
		return ""
	}
	return req.URL.Redacted()
}
