// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter(t *testing.T) {
	now := time.Date(2021, time.March, 4, 5, 6, 7, 0, time.UTC)
	req := newRequest(t, "PUT", "http://user:pw@foo.com:8080/a/b?x=1", "body")
	req.Header.Set("User-Agent", "ua/1")
	req.Header.Set("Accept", "text/plain")
	resp := &http.Response{
		StatusCode: 404,
		ProtoMajor: 1,
		ProtoMinor: 0,
		Header:     http.Header{"Content-Length": []string{"10"}, "X-Foo": []string{"a", "b"}},
	}
	bad := errors.New("bad")
	hostname, err := os.Hostname()
	require.NoError(t, err)

	testCases := []struct {
		template string
		resp     *http.Response
		err      error
		expected string
	}{
		{"{method} {target}", resp, nil, "PUT /a/b?x=1"},
		{"{uri}", resp, nil, "http://user:pw@foo.com:8080/a/b?x=1"},
		{"{url}", nil, nil, "http://user:pw@foo.com:8080/a/b?x=1"},
		{"{host}", nil, nil, "foo.com:8080"},
		{"{version} {req_version} {res_version}", resp, nil, "1.1 1.1 1.0"},
		{"{res_version}", nil, nil, "NULL"},
		{"{code} {phrase}", resp, nil, "404 Not Found"},
		{"{code} {phrase}", nil, nil, "NULL NULL"},
		{"{phrase}", &http.Response{StatusCode: 404, Status: "404 Gone Fishing"}, nil, "Gone Fishing"},
		{"{phrase}", &http.Response{StatusCode: 404, Status: "404"}, nil, "Not Found"},
		{"{phrase}", &http.Response{StatusCode: 299}, nil, ""},
		{"{error}", nil, bad, "bad"},
		{"{error}", resp, nil, "NULL"},
		{"{req_header_User-Agent}|{req_header_Missing}", nil, nil, "ua/1|"},
		{"{res_header_X-Foo}", resp, nil, "a"},
		{"{res_header_X-Foo}", nil, nil, "NULL"},
		{"{res_headers}", resp, nil, "Content-Length: 10\r\nX-Foo: a, b"},
		{"{req_headers}", nil, nil, "Accept: text/plain\r\nUser-Agent: ua/1"},
		{"{ts}", nil, nil, "2021-03-04T05:06:07Z"},
		{"{date_iso_8601}", nil, nil, "2021-03-04T05:06:07Z"},
		{"{date_common_log}", nil, nil, "04/Mar/2021:05:06:07 +0000"},
		{"{hostname}", nil, nil, hostname},
		{"{ method }", nil, nil, "PUT"},
		{"{unknown} {method}", nil, nil, "{unknown} PUT"},
		{"{method}{method}", nil, nil, "PUTPUT"},
		{"{response}", nil, nil, "NULL"},
		{ShortFormat, resp, nil, `[2021-03-04T05:06:07Z] "PUT /a/b?x=1 HTTP/1.1" 404`},
		{CLF, resp, nil, hostname + ` ua/1 - [04/Mar/2021:05:06:07 +0000] "PUT /a/b?x=1 HTTP/1.1" 404 10`},
	}
	for _, testCase := range testCases {
		t.Run(testCase.template, func(t *testing.T) {
			f := &Formatter{Template: testCase.template, Now: func() time.Time { return now }}
			assert.Equal(t, testCase.expected, f.Format(req, testCase.resp, testCase.err))
		})
	}

	t.Run("request dump", func(t *testing.T) {
		f := NewFormatter("{request}")
		actual := f.Format(req, nil, nil)
		assert.Contains(t, actual, "PUT /a/b?x=1 HTTP/1.1\r\n")
		assert.Contains(t, actual, "Host: foo.com:8080")
		assert.Contains(t, actual, "User-Agent: ua/1")
		assert.NotContains(t, actual, "body")
	})
	t.Run("response dump", func(t *testing.T) {
		actual := NewFormatter("{response}").Format(req, resp, nil)
		assert.True(t, strings.HasPrefix(actual, "HTTP/1.0 404 Not Found\r\n"))
		assert.Contains(t, actual, "X-Foo: a\r\nX-Foo: b")
	})
	t.Run("nil formatter uses CLF", func(t *testing.T) {
		var f *Formatter
		actual := f.Format(req, resp, nil)
		assert.Contains(t, actual, `"PUT /a/b?x=1 HTTP/1.1" 404 10`)
	})
	t.Run("empty template uses CLF", func(t *testing.T) {
		f := &Formatter{}
		actual := f.Format(req, resp, nil)
		assert.Contains(t, actual, `"PUT /a/b?x=1 HTTP/1.1" 404 10`)
	})
}
