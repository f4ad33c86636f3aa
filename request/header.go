// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/gogama/httpstack/httperr"
)

// HeadersFromLines parses raw "Name: value" header lines into a header
// map. Names are canonicalized, values are trimmed, and repeated names
// accumulate values in order. Lines without a colon are ignored.
func HeadersFromLines(lines []string) http.Header {
	h := make(http.Header)
	for _, line := range lines {
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			continue
		}
		name := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(line[:i]))
		h[name] = append(h[name], strings.TrimSpace(line[i+1:]))
	}
	return h
}

// A StatusLine is a parsed HTTP/1.x response status line.
type StatusLine struct {
	Proto      string
	ProtoMajor int
	ProtoMinor int
	StatusCode int
	Reason     string
}

// ParseStatusLine parses a status line such as "HTTP/1.1 200 OK". The
// reason phrase is optional.
func ParseStatusLine(line string) (StatusLine, error) {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return StatusLine{}, httperr.InvalidArgument("httpstack/request: malformed status line %q", line)
	}
	major, minor, ok := http.ParseHTTPVersion(parts[0])
	if !ok {
		return StatusLine{}, httperr.InvalidArgument("httpstack/request: malformed protocol in status line %q", line)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil || code < 100 || code > 999 {
		return StatusLine{}, httperr.InvalidArgument("httpstack/request: malformed status code in status line %q", line)
	}
	sl := StatusLine{
		Proto:      parts[0],
		ProtoMajor: major,
		ProtoMinor: minor,
		StatusCode: code,
	}
	if len(parts) == 3 {
		sl.Reason = parts[2]
	}
	return sl, nil
}

// Status returns the status in the form used by http.Response, for
// example "200 OK".
func (sl StatusLine) Status() string {
	reason := sl.Reason
	if reason == "" {
		reason = http.StatusText(sl.StatusCode)
	}
	return strings.TrimSpace(strconv.Itoa(sl.StatusCode) + " " + reason)
}
