// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mock

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gogama/httpstack/httperr"
	"github.com/gogama/httpstack/promise"
	"github.com/gogama/httpstack/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T, url string) *http.Request {
	req, err := request.New("GET", url, nil)
	require.NoError(t, err)
	return req
}

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestHandler_Queue(t *testing.T) {
	t.Run("returns queued response", func(t *testing.T) {
		res := newResponse(200, "")
		m := New(res)
		resp, err := m.Handle(newRequest(t, "http://example.com"), nil).Wait()
		require.NoError(t, err)
		assert.Same(t, res, resp)
	})
	t.Run("len", func(t *testing.T) {
		res := newResponse(200, "")
		assert.Equal(t, 2, New(res, res).Len())
		assert.Equal(t, 0, New().Len())
	})
	t.Run("N items serve N requests", func(t *testing.T) {
		m := New(newResponse(200, ""), errors.New("a"), newResponse(201, ""))
		require.Equal(t, 3, m.Len())
		for i := 3; i > 0; i-- {
			p := m.Handle(newRequest(t, "http://example.com"), nil)
			assert.Equal(t, i-1, m.Len())
			assert.NotEqual(t, promise.StatePending, p.State())
		}
		_, err := m.Handle(newRequest(t, "http://example.com"), nil).Wait()
		var oe *httperr.OutOfItemsError
		require.True(t, errors.As(err, &oe))
		assert.Equal(t, "http://example.com", oe.Request.URL.String())
	})
	t.Run("empty queue rejects", func(t *testing.T) {
		_, err := New().Handle(newRequest(t, "http://example.com"), nil).Wait()
		assert.IsType(t, &httperr.OutOfItemsError{}, err)
	})
	t.Run("invalid item panics", func(t *testing.T) {
		assert.PanicsWithValue(t,
			httperr.InvalidArgument("httpstack/mock: expected a response, error, promise or Func, got string"),
			func() { New("a") })
	})
	t.Run("invalid append", func(t *testing.T) {
		m := New()
		err := m.Append(newResponse(200, ""), 42)
		assert.IsType(t, &httperr.InvalidArgumentError{}, err)
		assert.Equal(t, 0, m.Len(), "nothing queued on error")
		assert.Error(t, m.Append(nil))
		assert.Error(t, m.Append((*http.Response)(nil)))
	})
	t.Run("queued error", func(t *testing.T) {
		e := errors.New("a")
		_, err := New(e).Handle(newRequest(t, "http://example.com"), nil).Wait()
		assert.Same(t, e, err)
	})
	t.Run("queued promise", func(t *testing.T) {
		res := newResponse(200, "")
		p := promise.New(nil, nil)
		m := New(p)
		q := m.Handle(newRequest(t, "http://example.com"), nil)
		assert.Equal(t, promise.StatePending, q.State())
		p.Fulfill(res)
		resp, err := q.Wait()
		require.NoError(t, err)
		assert.Same(t, res, resp)
	})
}

func TestHandler_LastRequest(t *testing.T) {
	m := New(newResponse(200, ""))
	assert.Nil(t, m.LastRequest())
	req := newRequest(t, "http://example.com")
	m.Handle(req, request.Options{"foo": "bar"})
	assert.Same(t, req, m.LastRequest())
	assert.Equal(t, request.Options{"foo": "bar"}, m.LastOptions())
}

func TestHandler_Func(t *testing.T) {
	t.Run("response", func(t *testing.T) {
		res := newResponse(200, "")
		var gotOpts request.Options
		m := New(Func(func(req *http.Request, opts request.Options) interface{} {
			gotOpts = opts
			return res
		}))
		resp, err := m.Handle(newRequest(t, "http://example.com"), request.Options{"foo": "bar"}).Wait()
		require.NoError(t, err)
		assert.Same(t, res, resp)
		assert.Equal(t, "bar", gotOpts["foo"])
	})
	t.Run("nested", func(t *testing.T) {
		e := errors.New("inner")
		m := New(func(*http.Request, request.Options) interface{} {
			return Func(func(*http.Request, request.Options) interface{} { return e })
		})
		_, err := m.Handle(newRequest(t, "http://example.com"), nil).Wait()
		assert.Same(t, e, err)
	})
	t.Run("invalid result panics", func(t *testing.T) {
		m := New(Func(func(*http.Request, request.Options) interface{} { return "a" }))
		assert.Panics(t, func() { m.Handle(newRequest(t, "http://example.com"), nil) })
	})
}

func TestHandler_Sink(t *testing.T) {
	t.Run("path", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "mock_test")
		m := New(newResponse(200, "TEST CONTENT"))
		resp, err := m.Handle(newRequest(t, "http://example.com"), request.Options{request.Sink: p}).Wait()
		require.NoError(t, err)
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "TEST CONTENT", string(b))
		b, err = io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "TEST CONTENT", string(b))
		_ = resp.Body.Close()
	})
	t.Run("file", func(t *testing.T) {
		f, err := os.CreateTemp(t.TempDir(), "mock_test")
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		m := New(newResponse(200, "TEST CONTENT"))
		_, err = m.Handle(newRequest(t, "http://example.com"), request.Options{request.Sink: f}).Wait()
		require.NoError(t, err)
		b, err := os.ReadFile(f.Name())
		require.NoError(t, err)
		assert.Equal(t, "TEST CONTENT", string(b))
	})
	t.Run("stream", func(t *testing.T) {
		var buf bytes.Buffer
		m := New(newResponse(200, "TEST CONTENT"))
		_, err := m.Handle(newRequest(t, "http://example.com"), request.Options{request.Sink: &buf}).Wait()
		require.NoError(t, err)
		assert.Equal(t, "TEST CONTENT", buf.String())
	})
}

func TestHandler_OnHeaders(t *testing.T) {
	t.Run("not a func panics", func(t *testing.T) {
		m := New(newResponse(200, ""))
		assert.Panics(t, func() {
			m.Handle(newRequest(t, "http://example.com"), request.Options{request.OnHeaders: "error!"})
		})
	})
	t.Run("error rejects", func(t *testing.T) {
		res := newResponse(200, "")
		cause := errors.New("test")
		m := New(res)
		req := newRequest(t, "http://example.com")
		_, err := m.Handle(req, request.Options{
			request.OnHeaders: func(*http.Response) error { return cause },
		}).Wait()
		var re *httperr.RequestError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "An error was encountered during the on_headers event", re.Error())
		assert.Same(t, cause, re.Err)
		assert.Same(t, req, re.Request)
		assert.Same(t, res, re.Response)
	})
	t.Run("called with response", func(t *testing.T) {
		res := newResponse(200, "")
		var got *http.Response
		m := New(res)
		_, err := m.Handle(newRequest(t, "http://example.com"), request.Options{
			request.OnHeaders: func(r *http.Response) error { got = r; return nil },
		}).Wait()
		require.NoError(t, err)
		assert.Same(t, res, got)
	})
}

func TestHandler_Observers(t *testing.T) {
	t.Run("fulfilled", func(t *testing.T) {
		res := newResponse(200, "")
		var c *http.Response
		m := New(res)
		m.OnFulfilled = func(r *http.Response) { c = r }
		_, err := m.Handle(newRequest(t, "http://example.com"), nil).Wait()
		require.NoError(t, err)
		assert.Same(t, res, c)
	})
	t.Run("rejected", func(t *testing.T) {
		e := errors.New("a")
		var c error
		m := New(e)
		m.OnRejected = func(err error) { c = err }
		_, _ = m.Handle(newRequest(t, "http://example.com"), nil).Wait()
		assert.Same(t, e, c)
	})
}

func TestHandler_OnStats(t *testing.T) {
	t.Run("response", func(t *testing.T) {
		res := newResponse(200, "")
		req := newRequest(t, "http://example.com")
		var stats *request.TransferStats
		_, err := New(res).Handle(req, request.Options{
			request.OnStats: func(s *request.TransferStats) { stats = s },
		}).Wait()
		require.NoError(t, err)
		require.NotNil(t, stats)
		assert.Same(t, res, stats.Response)
		assert.Same(t, req, stats.Request)
		assert.NoError(t, stats.Err)
	})
	t.Run("error", func(t *testing.T) {
		e := errors.New("a")
		req := newRequest(t, "http://example.com")
		var stats *request.TransferStats
		_, _ = New(e).Handle(req, request.Options{
			request.OnStats: func(s *request.TransferStats) { stats = s },
		}).Wait()
		require.NotNil(t, stats)
		assert.Same(t, e, stats.Err)
		assert.Nil(t, stats.Response)
		assert.Same(t, req, stats.Request)
	})
}

func TestHandler_Delay(t *testing.T) {
	mc := clock.NewMock()
	res := newResponse(200, "")
	m := New(res)
	m.Clock = mc

	var stats *request.TransferStats
	p := m.Handle(newRequest(t, "http://example.com"), request.Options{
		request.Delay:   1.5,
		request.OnStats: func(s *request.TransferStats) { stats = s },
	})
	assert.Equal(t, promise.StatePending, p.State())
	mc.Add(time.Second)
	assert.Equal(t, promise.StatePending, p.State())
	mc.Add(500 * time.Millisecond)
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("delayed answer not delivered")
	}
	assert.Equal(t, promise.StateFulfilled, p.State())
	resp, _ := p.Result()
	assert.Same(t, res, resp)
	require.NotNil(t, stats)
	assert.Equal(t, 1500*time.Millisecond, stats.TransferTime)

	t.Run("cancel", func(t *testing.T) {
		m := New(newResponse(200, ""))
		m.Clock = mc
		p := m.Handle(newRequest(t, "http://example.com"), request.Options{request.Delay: 1})
		p.Cancel()
		mc.Add(time.Second)
		_, err := p.Result()
		assert.Same(t, promise.ErrCancelled, err)
	})
}
