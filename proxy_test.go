// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"net/http"
	"testing"

	"github.com/gogama/httpstack/mock"
	"github.com/gogama/httpstack/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute(t *testing.T) {
	t.Run("nil handler", func(t *testing.T) {
		assert.PanicsWithValue(t, "httpstack: nil handler", func() { Route("x", nil, mock.New()) })
		assert.PanicsWithValue(t, "httpstack: nil handler", func() { Route("x", mock.New(), nil) })
	})

	testCases := []struct {
		name   string
		wrap   func(def, alt Handler) Handler
		flag   string
		set    bool
		useAlt bool
	}{
		{"sync default", WrapSync, request.Synchronous, false, false},
		{"sync flagged", WrapSync, request.Synchronous, true, true},
		{"streaming default", WrapStreaming, request.Stream, false, false},
		{"streaming flagged", WrapStreaming, request.Stream, true, true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			defResp := &http.Response{StatusCode: 200}
			altResp := &http.Response{StatusCode: 201}
			def := mock.New(defResp)
			alt := mock.New(altResp)
			h := testCase.wrap(def, alt)

			req := newRequest(t, "GET", "http://foo.com", nil)
			opts := request.Options{}
			if testCase.set {
				opts[testCase.flag] = true
			}
			resp, err := h.Handle(req, opts).Wait()
			require.NoError(t, err)
			if testCase.useAlt {
				assert.Same(t, altResp, resp)
				assert.Same(t, req, alt.LastRequest())
				assert.Equal(t, 1, def.Len())
			} else {
				assert.Same(t, defResp, resp)
				assert.Same(t, req, def.LastRequest())
				assert.Equal(t, 1, alt.Len())
			}
		})
	}
	t.Run("flag false", func(t *testing.T) {
		def := mock.New(&http.Response{StatusCode: 200})
		alt := mock.New()
		_, err := Route("custom", def, alt).Handle(newRequest(t, "GET", "http://foo.com", nil), request.Options{"custom": false}).Wait()
		require.NoError(t, err)
		assert.Nil(t, alt.LastRequest())
	})
}
