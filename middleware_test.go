// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/gogama/httpstack/httperr"
	"github.com/gogama/httpstack/mock"
	"github.com/gogama/httpstack/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPErrors(t *testing.T) {
	testCases := []struct {
		code    int
		enabled bool
		errType interface{}
	}{
		{200, true, nil},
		{302, true, nil},
		{404, true, &httperr.ClientError{}},
		{500, true, &httperr.ServerError{}},
		{404, false, nil},
		{503, false, nil},
	}
	for _, testCase := range testCases {
		name := http.StatusText(testCase.code)
		if !testCase.enabled {
			name += " disabled"
		}
		t.Run(name, func(t *testing.T) {
			resp := &http.Response{StatusCode: testCase.code}
			h := HTTPErrors()(mock.New(resp))
			actual, err := h.Handle(newRequest(t, "GET", "http://example.com/x", nil), request.Options{request.HTTPErrors: testCase.enabled}).Wait()
			if testCase.errType == nil {
				require.NoError(t, err)
				assert.Same(t, resp, actual)
				return
			}
			assert.Nil(t, actual)
			assert.IsType(t, testCase.errType, err)
			var bre *httperr.BadResponseError
			require.ErrorAs(t, err, &bre)
			assert.Same(t, resp, bre.Response)
			assert.Contains(t, err.Error(), "`GET http://example.com/x` resulted in a")
		})
	}
	t.Run("option missing", func(t *testing.T) {
		h := HTTPErrors()(mock.New(&http.Response{StatusCode: 500}))
		resp, err := h.Handle(newRequest(t, "GET", "http://example.com", nil), nil).Wait()
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
	})
}

func TestCookies(t *testing.T) {
	t.Run("jar round trip", func(t *testing.T) {
		jar := NewCookieJar()
		m := mock.New(
			&http.Response{StatusCode: 200, Header: http.Header{"Set-Cookie": []string{"foo=bar; Path=/"}}},
			&http.Response{StatusCode: 200},
		)
		h := Cookies()(m)
		opts := request.Options{request.Cookies: jar}

		first := newRequest(t, "GET", "http://example.com/", nil)
		_, err := h.Handle(first, opts).Wait()
		require.NoError(t, err)
		assert.Empty(t, first.Header.Get("Cookie"))
		u, _ := url.Parse("http://example.com/")
		assert.Len(t, jar.Cookies(u), 1)

		second := newRequest(t, "GET", "http://example.com/a", nil)
		_, err = h.Handle(second, opts).Wait()
		require.NoError(t, err)
		assert.Equal(t, "foo=bar", m.LastRequest().Header.Get("Cookie"))
		assert.Empty(t, second.Header.Get("Cookie"))
	})
	t.Run("public suffix rejected", func(t *testing.T) {
		jar := NewCookieJar()
		m := mock.New(&http.Response{StatusCode: 200, Header: http.Header{"Set-Cookie": []string{"foo=bar; Domain=co.uk"}}})
		_, err := Cookies()(m).Handle(newRequest(t, "GET", "http://example.co.uk/", nil), request.Options{request.Cookies: jar}).Wait()
		require.NoError(t, err)
		u, _ := url.Parse("http://other.co.uk/")
		assert.Empty(t, jar.Cookies(u))
	})
	t.Run("disabled", func(t *testing.T) {
		for _, v := range []interface{}{nil, false} {
			m := mock.New(&http.Response{StatusCode: 200})
			req := newRequest(t, "GET", "http://example.com/", nil)
			_, err := Cookies()(m).Handle(req, request.Options{request.Cookies: v}).Wait()
			require.NoError(t, err)
			assert.Same(t, req, m.LastRequest())
		}
	})
	t.Run("invalid", func(t *testing.T) {
		for _, v := range []interface{}{true, "jar"} {
			m := mock.New(&http.Response{StatusCode: 200})
			assert.Panics(t, func() {
				Cookies()(m).Handle(newRequest(t, "GET", "http://example.com/", nil), request.Options{request.Cookies: v})
			})
		}
	})
}

func TestHistory(t *testing.T) {
	t.Run("nil journal", func(t *testing.T) {
		assert.PanicsWithValue(t, "httpstack: nil journal", func() { History(nil) })
	})
	t.Run("records in settle order", func(t *testing.T) {
		var j Journal
		bad := errors.New("bad")
		m := mock.New(&http.Response{StatusCode: 200}, bad, &http.Response{StatusCode: 201})
		h := History(&j)(m)
		for i, method := range []string{"GET", "PUT", "DELETE"} {
			opts := request.Options{request.Headers: map[string]string{"X-Seq": string(rune('0' + i))}}
			_, _ = h.Handle(newRequest(t, method, "http://example.com", nil), opts).Wait()
		}
		require.Equal(t, 3, j.Len())
		entries := j.Entries()
		assert.Equal(t, "GET", entries[0].Request.Method)
		assert.Equal(t, 200, entries[0].Response.StatusCode)
		assert.NoError(t, entries[0].Err)
		assert.Equal(t, "PUT", entries[1].Request.Method)
		assert.Nil(t, entries[1].Response)
		assert.Same(t, bad, entries[1].Err)
		assert.Equal(t, "DELETE", entries[2].Request.Method)
		assert.Equal(t, map[string]string{"X-Seq": "2"}, entries[2].Options[request.Headers])

		entries[0] = Transaction{}
		assert.NotNil(t, j.Entries()[0].Request)
	})
}

func TestMapRequest(t *testing.T) {
	m := mock.New(&http.Response{StatusCode: 200})
	h := MapRequest(func(req *http.Request) *http.Request {
		req = req.Clone(req.Context())
		req.Header.Set("X-Mapped", "yes")
		return req
	})(m)
	req := newRequest(t, "GET", "http://example.com", nil)
	_, err := h.Handle(req, nil).Wait()
	require.NoError(t, err)
	assert.Equal(t, "yes", m.LastRequest().Header.Get("X-Mapped"))
	assert.Empty(t, req.Header.Get("X-Mapped"))
}

func TestMapResponse(t *testing.T) {
	t.Run("fulfilled", func(t *testing.T) {
		h := MapResponse(func(resp *http.Response) *http.Response {
			return &http.Response{StatusCode: resp.StatusCode + 1}
		})(mock.New(&http.Response{StatusCode: 200}))
		resp, err := h.Handle(newRequest(t, "GET", "http://example.com", nil), nil).Wait()
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})
	t.Run("rejected", func(t *testing.T) {
		called := false
		bad := errors.New("bad")
		h := MapResponse(func(resp *http.Response) *http.Response {
			called = true
			return resp
		})(mock.New(bad))
		_, err := h.Handle(newRequest(t, "GET", "http://example.com", nil), nil).Wait()
		assert.Same(t, bad, err)
		assert.False(t, called)
	})
}

func TestPrepareBody(t *testing.T) {
	t.Run("no body strips framing", func(t *testing.T) {
		req := newRequest(t, "GET", "http://example.com", nil)
		req.Header.Set("Content-Length", "10")
		req.Header.Set("Transfer-Encoding", "chunked")
		actual := prepareBody(req)
		assert.NotSame(t, req, actual)
		assert.Empty(t, actual.Header.Get("Content-Length"))
		assert.Empty(t, actual.Header.Get("Transfer-Encoding"))
		assert.Equal(t, "10", req.Header.Get("Content-Length"))
	})
	t.Run("no body unchanged", func(t *testing.T) {
		req := newRequest(t, "GET", "http://example.com", nil)
		assert.Same(t, req, prepareBody(req))
	})
	t.Run("known length", func(t *testing.T) {
		req := newRequest(t, "POST", "http://example.com", "hello")
		actual := prepareBody(req)
		assert.Equal(t, int64(5), actual.ContentLength)
		assert.Equal(t, "5", actual.Header.Get("Content-Length"))
		assert.Empty(t, req.Header.Get("Content-Length"))
		assert.Same(t, actual, prepareBody(actual))
	})
	t.Run("unknown length", func(t *testing.T) {
		req := newRequest(t, "POST", "http://example.com", io.MultiReader(strings.NewReader("x")))
		actual := prepareBody(req)
		assert.Equal(t, int64(-1), actual.ContentLength)
		assert.Equal(t, []string{"chunked"}, actual.TransferEncoding)
	})
	t.Run("transfer encoding set", func(t *testing.T) {
		req := newRequest(t, "POST", "http://example.com", "hello")
		req.Header.Set("Transfer-Encoding", "chunked")
		assert.Same(t, req, prepareBody(req))
	})
	t.Run("middleware", func(t *testing.T) {
		m := mock.New(&http.Response{StatusCode: 200})
		_, err := PrepareBody()(m).Handle(newRequest(t, "PUT", "http://example.com", []byte("abc")), nil).Wait()
		require.NoError(t, err)
		assert.Equal(t, "3", m.LastRequest().Header.Get("Content-Length"))
	})
}
