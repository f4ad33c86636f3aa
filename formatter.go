// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpstack

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Message templates for NewFormatter.
const (
	// CLF is the Apache common log format.
	CLF = `{hostname} {req_header_User-Agent} - [{date_common_log}] "{method} {target} HTTP/{version}" {code} {res_header_Content-Length}`
	// DebugFormat dumps the request and response headers, or the error.
	DebugFormat = ">>>>>>>>\n{request}\n<<<<<<<<\n{response}\n--------\n{error}"
	// ShortFormat is a one line summary of the exchange.
	ShortFormat = `[{ts}] "{method} {target} HTTP/{version}" {code}`
)

var placeholder = regexp.MustCompile(`{\s*([A-Za-z0-9_\-]+)\s*}`)

// A Formatter formats a request, its response and its error as a log
// message, by substituting placeholders in a template.
//
// The placeholders are:
//
//	{request}          request line and headers
//	{response}         status line and headers
//	{ts}               the time, in RFC 3339 format
//	{date_iso_8601}    the time, in ISO 8601 format
//	{date_common_log}  the time, in Apache common log format
//	{host}             the host of the request
//	{method}           the method of the request
//	{uri}, {url}       the URL of the request
//	{target}           the request target: path and query
//	{version}          the protocol version of the request
//	{req_version}      the protocol version of the request
//	{res_version}      the protocol version of the response
//	{hostname}         the host name of the local machine
//	{code}             the response status code
//	{phrase}           the response reason phrase
//	{error}            the error message
//	{req_headers}      the request headers
//	{res_headers}      the response headers
//	{req_header_*}     a request header, for example {req_header_Accept}
//	{res_header_*}     a response header
//
// Placeholders describing a missing response or error are replaced with
// NULL. Unknown placeholders are left as they are.
type Formatter struct {
	// Template is the message template. If empty, CLF is used.
	Template string

	// Now returns the current time. If nil, time.Now is used.
	Now func() time.Time
}

// NewFormatter returns a Formatter using template.
func NewFormatter(template string) *Formatter {
	return &Formatter{Template: template}
}

// Format formats the exchange of req. Either of resp and err may be nil.
func (f *Formatter) Format(req *http.Request, resp *http.Response, err error) string {
	tmpl := CLF
	if f != nil && f.Template != "" {
		tmpl = f.Template
	}
	now := time.Now
	if f != nil && f.Now != nil {
		now = f.Now
	}

	cache := make(map[string]string)
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		if v, ok := cache[key]; ok {
			return v
		}
		v, ok := expand(key, req, resp, err, now)
		if !ok {
			return m
		}
		cache[key] = v
		return v
	})
}

func expand(key string, req *http.Request, resp *http.Response, err error, now func() time.Time) (string, bool) {
	switch key {
	case "request":
		b, derr := httputil.DumpRequest(req, false)
		if derr != nil {
			return "NULL", true
		}
		return strings.TrimRight(string(b), "\r\n"), true
	case "response":
		if resp == nil {
			return "NULL", true
		}
		b, derr := httputil.DumpResponse(resp, false)
		if derr != nil {
			return "NULL", true
		}
		return strings.TrimRight(string(b), "\r\n"), true
	case "ts", "date_iso_8601":
		return now().Format(time.RFC3339), true
	case "date_common_log":
		return now().Format("02/Jan/2006:15:04:05 -0700"), true
	case "host":
		if req.Host != "" {
			return req.Host, true
		}
		return req.URL.Host, true
	case "method":
		return req.Method, true
	case "uri", "url":
		return req.URL.String(), true
	case "target":
		return req.URL.RequestURI(), true
	case "version", "req_version":
		return version(req.ProtoMajor, req.ProtoMinor), true
	case "res_version":
		if resp == nil {
			return "NULL", true
		}
		return version(resp.ProtoMajor, resp.ProtoMinor), true
	case "hostname":
		h, herr := os.Hostname()
		if herr != nil {
			return "NULL", true
		}
		return h, true
	case "code":
		if resp == nil {
			return "NULL", true
		}
		return strconv.Itoa(resp.StatusCode), true
	case "phrase":
		if resp == nil {
			return "NULL", true
		}
		return reasonPhrase(resp), true
	case "error":
		if err == nil {
			return "NULL", true
		}
		return err.Error(), true
	case "req_headers":
		return headerBlock(req.Header), true
	case "res_headers":
		if resp == nil {
			return "NULL", true
		}
		return headerBlock(resp.Header), true
	}

	switch {
	case strings.HasPrefix(key, "req_header_"):
		return req.Header.Get(strings.TrimPrefix(key, "req_header_")), true
	case strings.HasPrefix(key, "res_header_"):
		if resp == nil {
			return "NULL", true
		}
		return resp.Header.Get(strings.TrimPrefix(key, "res_header_")), true
	}
	return "", false
}

// reasonPhrase returns the phrase the server sent in the status line,
// or the standard text for the code when there is none.
func reasonPhrase(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if phrase := strings.TrimPrefix(resp.Status, code); phrase != resp.Status {
		if phrase = strings.TrimSpace(phrase); phrase != "" {
			return phrase
		}
	}
	return http.StatusText(resp.StatusCode)
}

func version(major, minor int) string {
	if major == 0 && minor == 0 {
		major, minor = 1, 1
	}
	return fmt.Sprintf("%d.%d", major, minor)
}

func headerBlock(h http.Header) string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("\r\n")
		}
		b.WriteString(name + ": " + strings.Join(h[name], ", "))
	}
	return b.String()
}
